package login

// PasswordHasher defines the interface for password hashing implementations
type PasswordHasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash.
	// A mismatch is reported as (false, nil); errors mean the hash itself is unusable.
	Verify(password, hashedPassword string) (bool, error)
}
