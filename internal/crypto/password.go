package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMismatchedPassword indicates that the password does not match the hash
	ErrMismatchedPassword = errors.New("password does not match")

	// ErrUnsupportedHash indicates that the stored hash format is unknown
	ErrUnsupportedHash = errors.New("unsupported password hash format")
)

// PasswordHasher is a one-way hash/verify capability for secrets.
type PasswordHasher interface {
	// Hash returns an encoded hash of secret
	Hash(secret string) (string, error)

	// Verify returns ErrMismatchedPassword when secret does not match encoded
	Verify(encoded, secret string) error
}

// Argon2Params задает стоимость Argon2id
type Argon2Params struct {
	Memory  uint32 // KB
	Time    uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params параметры для production
var DefaultArgon2Params = Argon2Params{
	Memory:  64 * 1024,
	Time:    3,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

// Hasher hashes new secrets with Argon2id or bcrypt and verifies both
// formats, so existing bcrypt hashes keep working after a switch.
type Hasher struct {
	argon2     Argon2Params
	algorithm  string
	bcryptCost int
}

// Supported hash algorithms.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// NewHasher creates a hasher producing hashes with algorithm.
// An empty algorithm selects Argon2id.
func NewHasher(algorithm string, params Argon2Params, bcryptCost int) (*Hasher, error) {
	switch algorithm {
	case "", AlgorithmArgon2id:
		algorithm = AlgorithmArgon2id
	case AlgorithmBcrypt:
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", algorithm)
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Hasher{algorithm: algorithm, argon2: params, bcryptCost: bcryptCost}, nil
}

// Hash encodes secret in PHC format ($argon2id$v=19$m=..,t=..,p=..$salt$key)
// or as a bcrypt hash.
func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}

	if h.algorithm == AlgorithmBcrypt {
		b, err := bcrypt.GenerateFromPassword([]byte(secret), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("failed to hash with bcrypt: %w", err)
		}
		return string(b), nil
	}

	salt := make([]byte, h.argon2.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, h.argon2.Time, h.argon2.Memory, h.argon2.Threads, h.argon2.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.argon2.Memory, h.argon2.Time, h.argon2.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks secret against an encoded hash produced by either algorithm.
func (h *Hasher) Verify(encoded, secret string) error {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return verifyArgon2id(encoded, secret)
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(secret))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedPassword
		}
		return err
	default:
		return ErrUnsupportedHash
	}
}

func verifyArgon2id(encoded, secret string) error {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, key
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return ErrUnsupportedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return ErrUnsupportedHash
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return ErrUnsupportedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return ErrUnsupportedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return ErrUnsupportedHash
	}

	candidate := argon2.IDKey([]byte(secret), salt, iterations, memory, threads, uint32(len(key)))
	if subtle.ConstantTimeCompare(candidate, key) != 1 {
		return ErrMismatchedPassword
	}
	return nil
}
