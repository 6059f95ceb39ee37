package customer

import (
	"context"
	"math"
	"math/bits"

	"github.com/semanticallynull/bikeledger/internal/guard"
	"github.com/semanticallynull/bikeledger/store"
)

const (
	OpRegisterUser            = "registerUser"
	OpUpdateProfile           = "updateUserProfile"
	OpSetActive               = "setUserActiveStatus"
	OpUpdateVerificationLevel = "updateUserVerificationLevel"
	OpAddPaymentMethod        = "addPaymentMethod"
	OpRemovePaymentMethod     = "removePaymentMethod"
	OpAddDeposit              = "addDeposit"
	OpWithdrawDeposit         = "withdrawDeposit"
	OpChargeUser              = "chargeUser"
	OpSubmitDocument          = "submitVerificationDocument"
	OpVerifyDocument          = "verifyDocument"
	OpUpdateRidingStats       = "updateUserRidingStats"
	OpUpdateReputation        = "updateReputationScore"
)

var policies = map[string]guard.Policy{
	OpRegisterUser:            guard.Self,
	OpUpdateProfile:           guard.Self,
	OpSetActive:               guard.Self,
	OpUpdateVerificationLevel: guard.Owner,
	OpAddPaymentMethod:        guard.Self,
	OpRemovePaymentMethod:     guard.Self,
	OpAddDeposit:              guard.Self,
	OpWithdrawDeposit:         guard.Self,
	OpChargeUser:              guard.Owner,
	OpSubmitDocument:          guard.Self,
	OpVerifyDocument:          guard.Owner,
	OpUpdateRidingStats:       guard.Owner,
	OpUpdateReputation:        guard.Owner,
}

// Profile is the self-managed part of a user record.
type Profile struct {
	Username  string
	EmailHash string
	PhoneHash string
}

// Ledger holds user accounts. Self-service operations always act on the
// record keyed by the caller.
type Ledger struct {
	s        *store.Store
	guard    *guard.Guard
	users    *store.Table[string, User]
	methods  *store.Table[string, PaymentMethod]
	document *store.Table[DocumentKey, Document]
}

func New(s *store.Store, g *guard.Guard) *Ledger {
	return &Ledger{
		s:        s,
		guard:    g,
		users:    store.NewTable[string, User](s, "users"),
		methods:  store.NewTable[string, PaymentMethod](s, "payment-methods"),
		document: store.NewTable[DocumentKey, Document](s, "verification-documents"),
	}
}

func (l *Ledger) authorize(op string, call guard.Call) error {
	if !l.guard.Allow(policies[op], call.Caller, "") {
		return ErrNotAuthorized
	}
	return nil
}

// update runs fn against an existing user and writes the result back with
// LastUpdated stamped. argErr is the outcome of validating the operation's
// arguments; it is reported after the caller check and before the lookup.
func (l *Ledger) update(ctx context.Context, op string, call guard.Call, userID string, argErr error, fn func(u *User) error) (User, error) {
	var u User
	err := l.s.Update(ctx, op, func() error {
		if err := l.authorize(op, call); err != nil {
			return err
		}
		if argErr != nil {
			return argErr
		}
		var ok bool
		u, ok = l.users.Get(userID)
		if !ok {
			return ErrUserNotFound
		}
		if err := fn(&u); err != nil {
			return err
		}
		u.LastUpdated = call.Now
		l.users.Put(userID, u)
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (l *Ledger) RegisterUser(ctx context.Context, call guard.Call, p Profile) (User, error) {
	var u User
	err := l.s.Update(ctx, OpRegisterUser, func() error {
		if err := l.authorize(OpRegisterUser, call); err != nil {
			return err
		}
		if l.users.Has(call.Caller) {
			return ErrUserExists
		}

		u = User{
			ID:               call.Caller,
			Username:         p.Username,
			EmailHash:        p.EmailHash,
			PhoneHash:        p.PhoneHash,
			RegistrationDate: call.Now,
			LastUpdated:      call.Now,
			IsActive:         true,
			ReputationScore:  StartingReputation,
		}
		l.users.Put(call.Caller, u)
		return nil
	})
	return u, err
}

func (l *Ledger) UpdateProfile(ctx context.Context, call guard.Call, p Profile) (User, error) {
	return l.update(ctx, OpUpdateProfile, call, call.Caller, nil, func(u *User) error {
		u.Username = p.Username
		u.EmailHash = p.EmailHash
		u.PhoneHash = p.PhoneHash
		return nil
	})
}

func (l *Ledger) SetActive(ctx context.Context, call guard.Call, active bool) (User, error) {
	return l.update(ctx, OpSetActive, call, call.Caller, nil, func(u *User) error {
		u.IsActive = active
		return nil
	})
}

func (l *Ledger) UpdateVerificationLevel(ctx context.Context, call guard.Call, userID string, level uint64) (VerificationLevel, error) {
	lvl, argErr := ParseVerificationLevel(level)
	u, err := l.update(ctx, OpUpdateVerificationLevel, call, userID, argErr, func(u *User) error {
		u.VerificationLevel = lvl
		return nil
	})
	return u.VerificationLevel, err
}

// AddPaymentMethod records the caller's payment method, replacing any
// previous one.
func (l *Ledger) AddPaymentMethod(ctx context.Context, call guard.Call, provider, tokenHash, billingHash string) (PaymentMethod, error) {
	pm := PaymentMethod{
		Provider:    provider,
		TokenHash:   tokenHash,
		BillingHash: billingHash,
		IsDefault:   true,
		AddedAt:     call.Now,
		LastUsed:    call.Now,
	}
	_, err := l.update(ctx, OpAddPaymentMethod, call, call.Caller, nil, func(u *User) error {
		u.HasPaymentMethod = true
		l.methods.Put(call.Caller, pm)
		return nil
	})
	if err != nil {
		return PaymentMethod{}, err
	}
	return pm, nil
}

func (l *Ledger) RemovePaymentMethod(ctx context.Context, call guard.Call) error {
	_, err := l.update(ctx, OpRemovePaymentMethod, call, call.Caller, nil, func(u *User) error {
		if !l.methods.Has(call.Caller) {
			return ErrPaymentMethodNotFound
		}
		u.HasPaymentMethod = false
		l.methods.Delete(call.Caller)
		return nil
	})
	return err
}

// AddDeposit credits the caller and returns the new balance. A credit that
// would overflow the balance is rejected.
func (l *Ledger) AddDeposit(ctx context.Context, call guard.Call, amount uint64) (uint64, error) {
	u, err := l.update(ctx, OpAddDeposit, call, call.Caller, nil, func(u *User) error {
		sum, carry := bits.Add64(u.DepositBalance, amount, 0)
		if carry != 0 {
			return ErrBalanceOverflow
		}
		u.DepositBalance = sum
		return nil
	})
	return u.DepositBalance, err
}

func (l *Ledger) WithdrawDeposit(ctx context.Context, call guard.Call, amount uint64) (uint64, error) {
	u, err := l.update(ctx, OpWithdrawDeposit, call, call.Caller, nil, func(u *User) error {
		return debit(u, amount)
	})
	return u.DepositBalance, err
}

// ChargeUser settles amount from the user's deposit and adds it to their
// total spend.
func (l *Ledger) ChargeUser(ctx context.Context, call guard.Call, userID string, amount uint64) (uint64, error) {
	u, err := l.update(ctx, OpChargeUser, call, userID, nil, func(u *User) error {
		if err := debit(u, amount); err != nil {
			return err
		}
		u.TotalSpent = addSat(u.TotalSpent, amount)
		return nil
	})
	return u.DepositBalance, err
}

func debit(u *User, amount uint64) error {
	if amount > u.DepositBalance {
		return ErrInsufficientBalance
	}
	u.DepositBalance -= amount
	return nil
}

func (l *Ledger) SubmitDocument(ctx context.Context, call guard.Call, docType, docHash string) (Document, error) {
	var d Document
	err := l.s.Update(ctx, OpSubmitDocument, func() error {
		if err := l.authorize(OpSubmitDocument, call); err != nil {
			return err
		}
		if !l.users.Has(call.Caller) {
			return ErrUserNotFound
		}
		key := DocumentKey{UserID: call.Caller, Type: docType}
		if l.document.Has(key) {
			return ErrDocumentExists
		}

		d = Document{Hash: docHash, Status: Pending, SubmittedAt: call.Now}
		l.document.Put(key, d)
		return nil
	})
	return d, err
}

// VerifyDocument records the reviewer's verdict. The verification is valid
// for expiryBlocks from now.
func (l *Ledger) VerifyDocument(ctx context.Context, call guard.Call, userID, docType, status string, expiryBlocks uint64) (Document, error) {
	var d Document
	err := l.s.Update(ctx, OpVerifyDocument, func() error {
		if err := l.authorize(OpVerifyDocument, call); err != nil {
			return err
		}
		verdict, err := parseVerdict(status)
		if err != nil {
			return err
		}
		key := DocumentKey{UserID: userID, Type: docType}
		var ok bool
		d, ok = l.document.Get(key)
		if !ok {
			return ErrDocumentNotFound
		}

		d.Status = verdict
		d.VerifiedAt = call.Now
		d.Expiry = addSat(call.Now, expiryBlocks)
		l.document.Put(key, d)
		return nil
	})
	return d, err
}

func (l *Ledger) UpdateRidingStats(ctx context.Context, call guard.Call, userID string, rides, minutes, spent uint64) (User, error) {
	return l.update(ctx, OpUpdateRidingStats, call, userID, nil, func(u *User) error {
		u.TotalRides = addSat(u.TotalRides, rides)
		u.TotalRideMinutes = addSat(u.TotalRideMinutes, minutes)
		u.TotalSpent = addSat(u.TotalSpent, spent)
		return nil
	})
}

func (l *Ledger) UpdateReputation(ctx context.Context, call guard.Call, userID string, score uint64) (uint8, error) {
	var argErr error
	if score > uint64(MaxReputation) {
		argErr = ErrInvalidScore
	}
	u, err := l.update(ctx, OpUpdateReputation, call, userID, argErr, func(u *User) error {
		u.ReputationScore = uint8(score)
		return nil
	})
	return u.ReputationScore, err
}

func (l *Ledger) GetUser(userID string) (User, error) {
	var (
		u  User
		ok bool
	)
	l.s.View(func() {
		u, ok = l.users.Get(userID)
	})
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (l *Ledger) GetPaymentMethod(userID string) (PaymentMethod, error) {
	var (
		pm PaymentMethod
		ok bool
	)
	l.s.View(func() {
		pm, ok = l.methods.Get(userID)
	})
	if !ok {
		return PaymentMethod{}, ErrPaymentMethodNotFound
	}
	return pm, nil
}

// HasValidPaymentMethod is false for unknown users.
func (l *Ledger) HasValidPaymentMethod(userID string) bool {
	u, err := l.GetUser(userID)
	return err == nil && u.HasPaymentMethod
}

func (l *Ledger) VerificationLevel(userID string) (VerificationLevel, error) {
	u, err := l.GetUser(userID)
	return u.VerificationLevel, err
}

func (l *Ledger) DepositBalance(userID string) (uint64, error) {
	u, err := l.GetUser(userID)
	return u.DepositBalance, err
}

func (l *Ledger) GetDocument(userID, docType string) (Document, error) {
	var (
		d  Document
		ok bool
	)
	l.s.View(func() {
		d, ok = l.document.Get(DocumentKey{UserID: userID, Type: docType})
	})
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	return d, nil
}

func (l *Ledger) DocumentStatus(userID, docType string) (DocumentStatus, error) {
	d, err := l.GetDocument(userID, docType)
	return d.Status, err
}

// IsDocumentExpired is false when no such document exists.
func (l *Ledger) IsDocumentExpired(userID, docType string, now uint64) bool {
	d, err := l.GetDocument(userID, docType)
	return err == nil && d.Expired(now)
}

// CanRentBike is false for unknown users.
func (l *Ledger) CanRentBike(userID string) bool {
	u, err := l.GetUser(userID)
	return err == nil && u.CanRent()
}

func addSat(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}
