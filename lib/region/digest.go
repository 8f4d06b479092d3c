// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package region

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 keyed hash of a usable range.
type Digest [32]byte

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// digestDomainKey separates region digests from any other BLAKE3 use
// of the same bytes. Changing it changes every digest.
var digestDomainKey = [32]byte{
	'm', 'e', 'm', 's', 'a', 'n', 'd', 'b', 'o', 'x', '.', 'r', 'e', 'g', 'i', 'o',
	'n', '.', 'd', 'i', 'g', 'e', 's', 't', 0, 0, 0, 0, 0, 0, 0, 0,
}

// DigestBytes computes the region-domain digest of data. It equals
// Region.Digest for a Region whose usable range holds the same bytes,
// which lets a remote holder and a local copy compare contents.
func DigestBytes(data []byte) Digest {
	hasher, err := blake3.NewKeyed(digestDomainKey[:])
	if err != nil {
		panic("region: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// Digest hashes the usable range. Guard pages and the slack at the
// end of the last page are excluded.
func (r *Region) Digest() Digest {
	r.check()
	return DigestBytes(r.usable)
}
