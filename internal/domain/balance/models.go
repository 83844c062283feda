package balance

type LeaveType string

const (
	TypeRegular LeaveType = "Regular"
	TypeShort   LeaveType = "Short"
)

func (t LeaveType) Valid() bool {
	return t == TypeRegular || t == TypeShort
}

type Nature string

const (
	NatureCasual    Nature = "Casual"
	NatureSick      Nature = "Sick"
	NatureUnpaid    Nature = "Unpaid"
	NatureOther     Nature = "Other"
	NatureMaternity Nature = "Maternity"
	NaturePilgrim   Nature = "Pilgrim"
)

var natures = []Nature{NatureCasual, NatureSick, NatureUnpaid, NatureOther, NatureMaternity, NaturePilgrim}

func (n Nature) Valid() bool {
	for _, candidate := range natures {
		if n == candidate {
			return true
		}
	}
	return false
}

// Balance is a read-only view of one user's quotas and consumption.
type Balance struct {
	UserID      string  `json:"userId"`
	CasualQuota float64 `json:"casualQuota"`
	CasualUsed  float64 `json:"casualUsed"`
	SickQuota   float64 `json:"sickQuota"`
	SickUsed    float64 `json:"sickUsed"`
	UsedDays    float64 `json:"usedDays"`
	UsedHours   float64 `json:"usedHours"`
	TotalDays   float64 `json:"totalDays"`
}

// Charge records exactly what one deduction took from a balance so that it
// can be given back without re-deriving it.
type Charge struct {
	Type   LeaveType `json:"type"`
	Nature Nature    `json:"nature"`
	// Quantity is days for regular leave and hours for short leave.
	Quantity    float64 `json:"quantity"`
	CasualDays  float64 `json:"casualDays"`
	SickDays    float64 `json:"sickDays"`
	UnpaidHours float64 `json:"unpaidHours"`
}
