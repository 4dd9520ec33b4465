package clientdriver

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Checksum hashes r with SHA-256 and returns the lowercase hex digest.
func Checksum(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyMatch reports whether the uploaded and downloaded data produce the
// same SHA-256 digest.
func VerifyMatch(uploaded, downloaded io.Reader) (bool, string, string, error) {
	wantSum, err := Checksum(uploaded)
	if err != nil {
		return false, "", "", err
	}
	gotSum, err := Checksum(downloaded)
	if err != nil {
		return false, "", "", err
	}
	return wantSum == gotSum, wantSum, gotSum, nil
}
