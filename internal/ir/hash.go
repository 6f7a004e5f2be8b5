package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// Version suffix enables future algorithm migration.
const (
	DomainQuery  = "splitq/query/v1"
	DomainResult = "splitq/result/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes an already rendered query text together with its bind
// parameters. Two queries with equal fingerprints are served identically by
// any reader.
func Fingerprint(sql string, params IRArray) (string, error) {
	canonical, err := MarshalCanonical(IRObject{
		"sql":    IRString(sql),
		"params": params,
	})
	if err != nil {
		return "", fmt.Errorf("Fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainQuery, canonical), nil
}

// RowsDigest hashes result rows in order. Strategies are compared against
// direct execution by digest in tests and in the scenario harness.
func RowsDigest(rows []IRObject) (string, error) {
	arr := make(IRArray, len(rows))
	for i, r := range rows {
		arr[i] = r
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("RowsDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}

// MustRowsDigest is like RowsDigest but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRowsDigest(rows []IRObject) string {
	d, err := RowsDigest(rows)
	if err != nil {
		panic(err)
	}
	return d
}
