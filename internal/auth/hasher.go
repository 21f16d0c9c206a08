// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id defaults.
const (
	DefaultArgon2Time      = 1         // iterations
	DefaultArgon2MemoryKiB = 64 * 1024 // 64 MB
	DefaultArgon2Threads   = 4
	DefaultArgon2KeyLen    = 32

	argon2SaltLen = 16
	argon2Prefix  = "$argon2id$"
)

// Upper bounds for digest parameters. Validate rejects configurations above
// them and parseDigest rejects stored digests above them, so every digest
// Hash writes can be verified and one row costs at most 1 GiB to check.
const (
	maxDigestMemoryKiB = 1024 * 1024
	maxDigestTime      = 64
	maxDigestKeyLen    = 1024
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code(CodeEmptyPassword).Errorf("password cannot be empty")

// HashParams are the argon2id cost parameters used for new digests.
type HashParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
}

// DefaultHashParams returns the OWASP-recommended parameters.
func DefaultHashParams() HashParams {
	return HashParams{
		Time:      DefaultArgon2Time,
		MemoryKiB: DefaultArgon2MemoryKiB,
		Threads:   DefaultArgon2Threads,
		KeyLen:    DefaultArgon2KeyLen,
	}
}

// Validate reports parameters that argon2 cannot run with.
func (p HashParams) Validate() error {
	if p.Time < 1 || p.Time > maxDigestTime {
		return oops.Code(CodeConfigInvalid).With("time", p.Time).Errorf("argon2 time must be between 1 and %d", maxDigestTime)
	}
	if p.MemoryKiB > maxDigestMemoryKiB {
		return oops.Code(CodeConfigInvalid).
			With("memory_kib", p.MemoryKiB).
			Errorf("argon2 memory must be at most %d KiB", maxDigestMemoryKiB)
	}
	if p.KeyLen > maxDigestKeyLen {
		return oops.Code(CodeConfigInvalid).With("key_len", p.KeyLen).Errorf("argon2 key length must be at most %d bytes", maxDigestKeyLen)
	}
	if p.Threads < 1 {
		return oops.Code(CodeConfigInvalid).With("threads", p.Threads).Errorf("argon2 threads must be at least 1")
	}
	if p.MemoryKiB < 8*uint32(p.Threads) {
		return oops.Code(CodeConfigInvalid).
			With("memory_kib", p.MemoryKiB).
			With("threads", p.Threads).
			Errorf("argon2 memory must be at least 8 KiB per thread")
	}
	if p.KeyLen < 16 {
		return oops.Code(CodeConfigInvalid).With("key_len", p.KeyLen).Errorf("argon2 key length must be at least 16 bytes")
	}
	return nil
}

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted digest of the password. Two calls with the same
	// password return different digests.
	Hash(password string) (string, error)

	// Verify reports whether password matches digest.
	// A malformed or unsupported digest is a mismatch, never an error.
	Verify(password, digest string) bool
}

// Argon2idHasher implements PasswordHasher using argon2id and PHC strings.
type Argon2idHasher struct {
	params HashParams
}

// NewArgon2idHasher creates an Argon2idHasher with the default parameters.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultHashParams()}
}

// NewArgon2idHasherWithParams creates an Argon2idHasher with custom parameters.
// Invalid parameters return a CONFIG_INVALID error.
func NewArgon2idHasherWithParams(params HashParams) (*Argon2idHasher, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Argon2idHasher{params: params}, nil
}

// Hash produces an argon2id digest of the password.
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	p := h.params
	key := argon2.IDKey([]byte(password), salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.MemoryKiB,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks the password against an argon2id digest.
func (h *Argon2idHasher) Verify(password, digest string) bool {
	d, ok := parseDigest(digest)
	if !ok {
		return false
	}
	computed := argon2.IDKey([]byte(password), d.salt, d.time, d.memory, d.threads, uint32(len(d.key)))
	return subtle.ConstantTimeCompare(computed, d.key) == 1
}

type decodedDigest struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

// parseDigest decodes a PHC argon2id string. Parameters outside what this
// package would ever produce are rejected so a corrupt row cannot make
// verification allocate unbounded memory.
func parseDigest(digest string) (decodedDigest, bool) {
	var d decodedDigest

	if !strings.HasPrefix(digest, argon2Prefix) {
		return d, false
	}
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return d, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return d, false
	}

	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.memory, &d.time, &threads); err != nil {
		return d, false
	}
	if d.time < 1 || d.time > maxDigestTime || d.memory < 1 || d.memory > maxDigestMemoryKiB {
		return d, false
	}
	if threads < 1 || threads > 255 {
		return d, false
	}
	d.threads = uint8(threads)

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return d, false
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return d, false
	}
	if len(d.key) == 0 || len(d.key) > maxDigestKeyLen {
		return d, false
	}
	return d, true
}
