// Package token covers the SPL token and associated token account programs:
// account layout, reads and the create instructions withdrawals need.
package token

import (
	"crypto/ed25519"
)

// ProgramKey is TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA.
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 215, 101, 161, 147, 217, 203, 225, 70, 206, 235, 121, 172, 28, 180, 133, 237, 95, 91, 55, 145, 58, 140, 245, 133, 126, 255, 0, 169}
