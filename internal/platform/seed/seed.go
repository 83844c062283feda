package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"leaveflow/internal/domain/balance"
	"leaveflow/internal/domain/calendar"
	"leaveflow/internal/domain/delegation"
	"leaveflow/internal/domain/directory"
	"leaveflow/internal/platform/logger"
)

// File is the start-up state read from SEED_FILE.
type File struct {
	WeekendDays []int        `yaml:"weekendDays"`
	Holidays    []Holiday    `yaml:"holidays"`
	Users       []User       `yaml:"users"`
	Delegations []Delegation `yaml:"delegations"`
}

type Holiday struct {
	Date string `yaml:"date"`
	Name string `yaml:"name"`
}

type User struct {
	ID                  string   `yaml:"id"`
	Name                string   `yaml:"name"`
	Email               string   `yaml:"email"`
	Role                string   `yaml:"role"`
	SequentialApprovers []string `yaml:"sequentialApprovers"`
	CasualQuota         float64  `yaml:"casualQuota"`
	SickQuota           float64  `yaml:"sickQuota"`
}

type Delegation struct {
	UserID     string `yaml:"userId"`
	DelegateID string `yaml:"delegateId"`
	Start      string `yaml:"start"`
	End        string `yaml:"end"`
}

// Targets are the components a seed file populates.
type Targets struct {
	Directory   *directory.Directory
	Ledger      *balance.Ledger
	Calendar    *calendar.Calendar
	Delegations *delegation.Registry
}

func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a seed document. Unknown keys are rejected so that typos do
// not silently drop users.
func Parse(data []byte) (File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parse seed file: %w", err)
	}
	return f, nil
}

// Apply loads users and balances first, then approver lists (which need every
// user to exist), holidays and delegations.
func Apply(f File, t Targets, l *zap.Logger) error {
	log := logger.Named(l, "seed")

	for _, u := range f.Users {
		role, ok := directory.ParseRole(u.Role)
		if !ok {
			return fmt.Errorf("seed user %s: unknown role %q", u.ID, u.Role)
		}
		if _, err := t.Directory.Add(directory.User{ID: u.ID, Name: u.Name, Email: u.Email, Role: role}); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		if _, err := t.Ledger.Open(u.ID, u.CasualQuota, u.SickQuota); err != nil {
			return fmt.Errorf("seed balance %s: %w", u.ID, err)
		}
	}
	for _, u := range f.Users {
		if len(u.SequentialApprovers) == 0 {
			continue
		}
		if _, err := t.Directory.UpdateUserApprovers(u.ID, u.SequentialApprovers); err != nil {
			return fmt.Errorf("seed approvers for %s: %w", u.ID, err)
		}
	}

	for _, h := range f.Holidays {
		day, err := calendar.ParseDate(h.Date, false)
		if err != nil {
			return fmt.Errorf("seed holiday %q: %w", h.Name, err)
		}
		if _, err := t.Calendar.AddHoliday(day, h.Name); err != nil {
			return fmt.Errorf("seed holiday %q: %w", h.Name, err)
		}
	}

	for _, d := range f.Delegations {
		start, err := calendar.ParseDate(d.Start, false)
		if err != nil {
			return fmt.Errorf("seed delegation %s: %w", d.UserID, err)
		}
		end, err := calendar.ParseDate(d.End, true)
		if err != nil {
			return fmt.Errorf("seed delegation %s: %w", d.UserID, err)
		}
		if _, err := t.Delegations.Add(d.UserID, d.DelegateID, start, end); err != nil {
			return fmt.Errorf("seed delegation %s: %w", d.UserID, err)
		}
	}

	log.Info("seed applied",
		zap.Int("users", len(f.Users)),
		zap.Int("holidays", len(f.Holidays)),
		zap.Int("delegations", len(f.Delegations)),
	)
	return nil
}
