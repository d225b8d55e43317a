package domain

import (
	"strconv"
	"time"

	"github.com/theplant/luhn"
)

type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	SecretHash  string    `json:"-"`
	CreatedAt   time.Time `json:"createdTimestamp"`
	UpdatedAt   time.Time `json:"updatedTimestamp"`
}

type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
)

// Card links a physical card number to an account. PINHash is the bcrypt hash
// of the card PIN; the plaintext PIN is never stored.
type Card struct {
	ID        string     `json:"id"`
	AccountID string     `json:"accountId"`
	Number    string     `json:"-"`
	PINHash   string     `json:"-"`
	Status    CardStatus `json:"status"`
	CreatedAt time.Time  `json:"createdTimestamp"`
}

// ValidCardNumber reports whether a card number passes the Luhn checksum.
// Numbers longer than 18 digits do not fit in an int, so those are checksummed
// digit by digit instead of going through luhn.Valid.
func ValidCardNumber(number string) bool {
	if len(number) < 12 || len(number) > 19 {
		return false
	}
	for i := 0; i < len(number); i++ {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
	}
	if len(number) <= 18 {
		n, err := strconv.Atoi(number)
		if err != nil {
			return false
		}
		return luhn.Valid(n)
	}

	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}
