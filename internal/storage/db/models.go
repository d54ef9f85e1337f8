package db

// User is a stored credential record. The password is only ever held as a
// bcrypt hash; the plaintext never reaches this package.
type User struct {
	ID           uint64
	Name         string
	PasswordHash []byte
	Enabled      bool
	Authorities  []string
}

// Path returns the resource path of a user, used in log and API output.
func (u User) Path() string {
	return "users/" + u.Name
}
