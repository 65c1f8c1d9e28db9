package service

import "crypto/rand"

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// randomID returns a random lowercase-alphanumeric string of the given length.
func randomID(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf)
}

// NewAPIKey issues a charger API key.
func NewAPIKey() string {
	return randomID(20)
}

// NewInvitationID issues a registration-invitation id.
func NewInvitationID() string {
	return randomID(40)
}
