// Package identity derives the stable review key and removes duplicates.
package identity

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"review_monitor/internal/domain"
)

const hashDateLayout = "2006-01-02 15:04:05"

// minTrustedLen is the shortest stored hash that is kept as-is.
const minTrustedLen = 6

// ComputeHash returns the stored hash when it looks real, otherwise the md5
// hex digest of date, listing name and text.
func ComputeHash(r domain.Review) string {
	if len(r.Hash) >= minTrustedLen {
		return r.Hash
	}
	date := ""
	if !r.Date.IsZero() {
		date = r.Date.Format(hashDateLayout)
	}
	sum := md5.Sum([]byte(date + r.ListingName + r.Text))
	return hex.EncodeToString(sum[:])
}

// Assign fills missing hashes in place and returns how many were set.
func Assign(rs []domain.Review) int {
	n := 0
	for i := range rs {
		if h := ComputeHash(rs[i]); h != rs[i].Hash {
			rs[i].Hash = h
			n++
		}
	}
	return n
}

// Dedup keeps the last occurrence of every hash, at that occurrence's
// position. Rows without a hash are kept.
func Dedup(rs []domain.Review) []domain.Review {
	last := make(map[string]int, len(rs))
	for i, r := range rs {
		if r.Hash != "" {
			last[r.Hash] = i
		}
	}
	out := make([]domain.Review, 0, len(last))
	for i, r := range rs {
		if r.Hash == "" || last[r.Hash] == i {
			out = append(out, r)
		}
	}
	return out
}

// SameContent reports whether two reviews are the same guest text for the
// same listing, ignoring whitespace and case. Re-scrapes of a relative date
// ("hace 3 días") drift, so the hash alone cannot catch them.
func SameContent(a, b domain.Review) bool {
	return a.Platform == b.Platform &&
		strings.EqualFold(strings.TrimSpace(a.ListingName), strings.TrimSpace(b.ListingName)) &&
		normalizeText(a.Text) == normalizeText(b.Text)
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
