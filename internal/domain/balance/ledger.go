package balance

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"leaveflow/internal/platform/apperror"
	"leaveflow/internal/platform/logger"
)

type account struct {
	casualQuota decimal.Decimal
	casualUsed  decimal.Decimal
	sickQuota   decimal.Decimal
	sickUsed    decimal.Decimal
	usedDays    decimal.Decimal
	usedHours   decimal.Decimal
}

func (a *account) view(userID string) Balance {
	return Balance{
		UserID:      userID,
		CasualQuota: a.casualQuota.InexactFloat64(),
		CasualUsed:  a.casualUsed.InexactFloat64(),
		SickQuota:   a.sickQuota.InexactFloat64(),
		SickUsed:    a.sickUsed.InexactFloat64(),
		UsedDays:    a.usedDays.InexactFloat64(),
		UsedHours:   a.usedHours.InexactFloat64(),
		TotalDays:   a.casualQuota.Add(a.sickQuota).InexactFloat64(),
	}
}

// Ledger tracks per-user leave quotas and consumption. It knows nothing about
// the workflow; callers decide when to deduct and restore.
type Ledger struct {
	mu          sync.RWMutex
	accounts    map[string]*account
	hoursPerDay decimal.Decimal
	logger      *zap.Logger
}

func NewLedger(hoursPerDay float64, l *zap.Logger) *Ledger {
	if hoursPerDay <= 0 {
		hoursPerDay = 8
	}
	return &Ledger{
		accounts:    make(map[string]*account),
		hoursPerDay: decimal.NewFromFloat(hoursPerDay),
		logger:      logger.Named(l, "balance.ledger"),
	}
}

// Open creates the balance row for a user with the given annual quotas.
func (l *Ledger) Open(userID string, casualQuota, sickQuota float64) (Balance, error) {
	if casualQuota < 0 || sickQuota < 0 {
		return Balance{}, apperror.Wrapf(ErrInvalidQuantity, "quota for %s", userID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[userID]; exists {
		return Balance{}, apperror.Wrapf(ErrAccountExists, "user %s", userID)
	}
	a := &account{
		casualQuota: decimal.NewFromFloat(casualQuota),
		sickQuota:   decimal.NewFromFloat(sickQuota),
	}
	l.accounts[userID] = a
	return a.view(userID), nil
}

func (l *Ledger) Get(userID string) (Balance, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	a, ok := l.accounts[userID]
	if !ok {
		return Balance{}, apperror.Wrapf(ErrAccountNotFound, "user %s", userID)
	}
	return a.view(userID), nil
}

func (l *Ledger) List() []Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Balance, 0, len(l.accounts))
	for id, a := range l.accounts {
		out = append(out, a.view(id))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Deduct charges quantity against the user's balance. The resolved nature and
// the amounts taken are computed and applied against one snapshot under the
// ledger lock.
//
// Regular leave adds to usedDays and to the quota matching nature (Casual or
// Sick; other natures touch no quota). Short leave adds hours to usedHours
// and takes hours/hoursPerDay from the remaining casual quota; whatever the
// quota cannot cover is unpaid and the charge's nature becomes Unpaid.
func (l *Ledger) Deduct(userID string, leaveType LeaveType, nature Nature, quantity float64) (Charge, error) {
	if quantity < 0 {
		return Charge{}, ErrInvalidQuantity
	}
	if !leaveType.Valid() {
		return Charge{}, apperror.Wrapf(ErrInvalidType, "%q", leaveType)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[userID]
	if !ok {
		return Charge{}, apperror.Wrapf(ErrAccountNotFound, "user %s", userID)
	}

	qty := decimal.NewFromFloat(quantity)
	charge := Charge{Type: leaveType, Quantity: quantity}

	switch leaveType {
	case TypeRegular:
		if nature == "" {
			nature = NatureCasual
		}
		if !nature.Valid() {
			return Charge{}, apperror.Wrapf(ErrInvalidNature, "%q", nature)
		}
		charge.Nature = nature
		a.usedDays = a.usedDays.Add(qty)
		switch nature {
		case NatureCasual:
			a.casualUsed = a.casualUsed.Add(qty)
			charge.CasualDays = quantity
		case NatureSick:
			a.sickUsed = a.sickUsed.Add(qty)
			charge.SickDays = quantity
		}
	case TypeShort:
		dayEquivalent := qty.Div(l.hoursPerDay)
		remaining := decimal.Max(decimal.Zero, a.casualQuota.Sub(a.casualUsed))
		covered := decimal.Min(dayEquivalent, remaining)
		uncovered := dayEquivalent.Sub(covered)

		charge.Nature = NatureCasual
		if uncovered.IsPositive() {
			charge.Nature = NatureUnpaid
		}
		charge.CasualDays = covered.InexactFloat64()
		charge.UnpaidHours = uncovered.Mul(l.hoursPerDay).InexactFloat64()

		a.usedHours = a.usedHours.Add(qty)
		a.casualUsed = a.casualUsed.Add(covered)
	}

	l.logger.Debug("balance deducted",
		zap.String("user_id", userID),
		zap.String("type", string(leaveType)),
		zap.String("nature", string(charge.Nature)),
		zap.Float64("quantity", quantity),
		zap.Float64("casual_days", charge.CasualDays),
	)
	return charge, nil
}

// Restore gives back what charge took. Every field is clamped at zero.
func (l *Ledger) Restore(userID string, charge Charge) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, ok := l.accounts[userID]
	if !ok {
		return apperror.Wrapf(ErrAccountNotFound, "user %s", userID)
	}

	qty := decimal.NewFromFloat(charge.Quantity)
	switch charge.Type {
	case TypeRegular:
		a.usedDays = subClamped(a.usedDays, qty)
	case TypeShort:
		a.usedHours = subClamped(a.usedHours, qty)
	default:
		return apperror.Wrapf(ErrInvalidType, "%q", charge.Type)
	}
	a.casualUsed = subClamped(a.casualUsed, decimal.NewFromFloat(charge.CasualDays))
	a.sickUsed = subClamped(a.sickUsed, decimal.NewFromFloat(charge.SickDays))

	l.logger.Debug("balance restored",
		zap.String("user_id", userID),
		zap.String("type", string(charge.Type)),
		zap.Float64("quantity", charge.Quantity),
	)
	return nil
}

func subClamped(value, amount decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, value.Sub(amount))
}
