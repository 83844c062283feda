package directory

type User struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Email               string   `json:"email,omitempty"`
	Role                Role     `json:"role"`
	SequentialApprovers []string `json:"sequentialApprovers"`
}

func (u User) clone() User {
	out := u
	out.SequentialApprovers = append([]string(nil), u.SequentialApprovers...)
	return out
}

// ApproverIndex returns the position of approverID in the user's sequential
// approver list, or -1.
func (u User) ApproverIndex(approverID string) int {
	for i, id := range u.SequentialApprovers {
		if id == approverID {
			return i
		}
	}
	return -1
}
