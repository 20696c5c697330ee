package z

import "bytes"

// CheckZipData returns true if the local file header signature `PK\x03\x04` appears anywhere in data.
//
// This is a cheap sniffing test used to pick the ZIP codec for buffers without a recognisable extension; it does not
// guarantee that data can be parsed.
func CheckZipData(data []byte) bool {
	return bytes.Contains(data, sigLFHBytes)
}
