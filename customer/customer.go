// Package customer is the user account ledger: profiles, the single payment
// method per user, deposits, identity documents and reputation.
package customer

import (
	"encoding/hex"

	"github.com/goccy/go-json"
	"github.com/zeebo/blake3"
)

const (
	// MaxVerificationLevel is the highest trust tier.
	MaxVerificationLevel VerificationLevel = 3
	// MaxReputation is the upper bound of a reputation score.
	MaxReputation uint8 = 100
	// StartingReputation is given to every new user.
	StartingReputation uint8 = 70

	minRentReputation   uint8             = 50
	minRentVerification VerificationLevel = 1
)

// VerificationLevel is a KYC trust tier from 0 to MaxVerificationLevel.
type VerificationLevel uint8

// ParseVerificationLevel rejects anything above MaxVerificationLevel.
func ParseVerificationLevel(v uint64) (VerificationLevel, error) {
	if v > uint64(MaxVerificationLevel) {
		return 0, ErrInvalidVerificationLevel
	}
	return VerificationLevel(v), nil
}

// User is keyed by the caller identity that registered it.
type User struct {
	ID                string            `json:"id"`
	Username          string            `json:"username"`
	EmailHash         string            `json:"emailHash"`
	PhoneHash         string            `json:"phoneHash"`
	VerificationLevel VerificationLevel `json:"verificationLevel"`
	RegistrationDate  uint64            `json:"registrationDate"`
	LastUpdated       uint64            `json:"lastUpdated"`
	IsActive          bool              `json:"isActive"`
	HasPaymentMethod  bool              `json:"hasPaymentMethod"`
	DepositBalance    uint64            `json:"depositBalance"`
	ReputationScore   uint8             `json:"reputationScore"`
	TotalRides        uint64            `json:"totalRides"`
	TotalRideMinutes  uint64            `json:"totalRideMinutes"`
	TotalSpent        uint64            `json:"totalSpent"`
}

// CanRent is the rental eligibility predicate.
func (u User) CanRent() bool {
	return u.IsActive &&
		u.HasPaymentMethod &&
		u.VerificationLevel >= minRentVerification &&
		u.ReputationScore >= minRentReputation
}

// PaymentMethod is the one method a user has on file. Adding a new one
// replaces it.
type PaymentMethod struct {
	Provider    string `json:"provider"`
	TokenHash   string `json:"tokenHash"`
	BillingHash string `json:"billingAddressHash"`
	IsDefault   bool   `json:"isDefault"`
	AddedAt     uint64 `json:"addedAt"`
	LastUsed    uint64 `json:"lastUsed"`
}

type DocumentStatus int

const (
	Pending DocumentStatus = iota
	Verified
	Rejected
)

var documentStatusNames = [...]string{"pending", "verified", "rejected"}

func (s DocumentStatus) String() string {
	if s < 0 || int(s) >= len(documentStatusNames) {
		return "unknown"
	}
	return documentStatusNames[s]
}

func ParseDocumentStatus(v string) (DocumentStatus, error) {
	for i, name := range documentStatusNames {
		if name == v {
			return DocumentStatus(i), nil
		}
	}
	return 0, ErrInvalidVerificationStatus
}

// parseVerdict accepts only the outcomes a reviewer can give.
func parseVerdict(v string) (DocumentStatus, error) {
	s, err := ParseDocumentStatus(v)
	if err != nil || s == Pending {
		return 0, ErrInvalidVerificationStatus
	}
	return s, nil
}

func (s DocumentStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *DocumentStatus) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	parsed, err := ParseDocumentStatus(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// DocumentKey allows one document per user and type.
type DocumentKey struct {
	UserID string `json:"userId"`
	Type   string `json:"type"`
}

type Document struct {
	Hash        string         `json:"documentHash"`
	Status      DocumentStatus `json:"verificationStatus"`
	SubmittedAt uint64         `json:"submittedAt"`
	VerifiedAt  uint64         `json:"verifiedAt"`
	Expiry      uint64         `json:"verificationExpiry"`
}

// Expired is strict: a document is still valid at its expiry block.
func (d Document) Expired(now uint64) bool {
	return now > d.Expiry
}

// Hash is the hex BLAKE3 digest the ledger stores in place of contact
// details, payment tokens and billing addresses.
func Hash(s string) string {
	sum := blake3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
