package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical mode so equal listings encode to equal bytes.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalListing serializes a Listing to CBOR bytes.
func MarshalListing(l *Listing) ([]byte, error) {
	return cborEncMode.Marshal(l)
}

// UnmarshalListing deserializes a Listing from CBOR bytes.
func UnmarshalListing(data []byte) (*Listing, error) {
	var l Listing
	if err := cbor.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal listing: %w", err)
	}
	return &l, nil
}

// MarshalListings serializes a batch of listings, one per instrumented method.
func MarshalListings(ls []*Listing) ([]byte, error) {
	return cborEncMode.Marshal(ls)
}

// UnmarshalListings deserializes a batch written by MarshalListings.
func UnmarshalListings(data []byte) ([]*Listing, error) {
	var ls []*Listing
	if err := cbor.Unmarshal(data, &ls); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal listings: %w", err)
	}
	return ls, nil
}
