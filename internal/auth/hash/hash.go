// Package hash derives and verifies Argon2id password hashes in PHC string
// form: $argon2id$v=19$m=65536,t=3,p=1$<saltB64>$<hashB64>.
package hash

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    uint32 = 3
	argonMemory  uint32 = 64 * 1024 // KiB
	argonThreads uint8  = 1
	saltLen             = 16
	keyLen       uint32 = 32

	phcAlg     = "argon2id"
	phcVersion = 19
)

// Password hashes plain with the package defaults and a fresh random salt.
func Password(plain string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, keyLen)
	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		phcAlg, phcVersion, argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify re-derives the hash using the parameters embedded in phc and compares
// in constant time. Any parse failure verifies as false.
func Verify(phc, plain string) bool {
	p, salt, sum, err := parsePHC(phc)
	if err != nil {
		return false
	}
	calc := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, uint32(len(sum)))
	return subtle.ConstantTimeCompare(calc, sum) == 1
}

type params struct {
	time    uint32
	memory  uint32
	threads uint8
}

func parsePHC(phc string) (params, []byte, []byte, error) {
	if !strings.HasPrefix(phc, "$") {
		return params{}, nil, nil, errors.New("phc: missing prefix")
	}
	parts := strings.Split(phc, "$")
	if len(parts) < 6 {
		return params{}, nil, nil, errors.New("phc: wrong part count")
	}
	if parts[1] != phcAlg {
		return params{}, nil, nil, fmt.Errorf("phc: unsupported alg %q", parts[1])
	}
	v, err := strconv.Atoi(strings.TrimPrefix(parts[2], "v="))
	if err != nil || !strings.HasPrefix(parts[2], "v=") || v != phcVersion {
		return params{}, nil, nil, fmt.Errorf("phc: unsupported version %q", parts[2])
	}
	var p params
	for _, kv := range strings.Split(parts[3], ",") {
		k, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(val, 10, 32)
		if err != nil {
			continue
		}
		switch k {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			if n <= 255 {
				p.threads = uint8(n)
			}
		}
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return params{}, nil, nil, errors.New("phc: incomplete params")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return params{}, nil, nil, errors.New("phc: bad salt")
	}
	sum, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(sum) == 0 {
		return params{}, nil, nil, errors.New("phc: bad hash")
	}
	return p, salt, sum, nil
}
