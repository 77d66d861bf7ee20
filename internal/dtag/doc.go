// Package dtag validates and mints d-tag identifiers.
//
// A d-tag is the stable discriminator of an addressable record: exactly 22
// base64url characters (alphabet A-Z a-z 0-9 - _) encoding 16 bytes. Because
// 128 bits leave 2 residual bits in the final symbol, the last character must
// be one of A, Q, g, w. Values are rejected, never truncated or padded.
package dtag
