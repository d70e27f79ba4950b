package test

import (
	"bytes"
)

// TestCOSEKey returns a deterministic CBOR-encoded COSE_Key of type EC2 on
// P-256 (alg ES256), the shape platform authenticators produce for passkeys.
func TestCOSEKey() []byte {
	var x, y [32]byte
	for i := range x {
		x[i] = byte(i + 1)
		y[i] = byte(0xff - i)
	}

	var buf bytes.Buffer
	buf.WriteByte(0xa5)                 // map(5)
	buf.Write([]byte{0x01, 0x02})       // 1 (kty): 2 (EC2)
	buf.Write([]byte{0x03, 0x26})       // 3 (alg): -7 (ES256)
	buf.Write([]byte{0x20, 0x01})       // -1 (crv): 1 (P-256)
	buf.Write([]byte{0x21, 0x58, 0x20}) // -2 (x): bytes(32)
	buf.Write(x[:])
	buf.Write([]byte{0x22, 0x58, 0x20}) // -3 (y): bytes(32)
	buf.Write(y[:])

	return buf.Bytes()
}
