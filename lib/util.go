package lib

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
)

// shortHashLen is the number of hash bytes kept in log lines
const shortHashLen = 10

// JSON HELPERS BELOW

// MarshalJSON() wraps json.Marshal with a module error
func MarshalJSON(v any) ([]byte, ErrorI) {
	bz, err := json.Marshal(v)
	if err != nil {
		return nil, ErrJSONMarshal(err)
	}
	return bz, nil
}

// MarshalJSONIndentString() renders v as two-space indented JSON, used for console output
func MarshalJSONIndentString(v any) (string, ErrorI) {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", ErrJSONMarshal(err)
	}
	return string(bz), nil
}

// UnmarshalJSON() wraps json.Unmarshal with a module error
func UnmarshalJSON(bz []byte, ptr any) ErrorI {
	if err := json.Unmarshal(bz, ptr); err != nil {
		return ErrJSONUnmarshal(err)
	}
	return nil
}

// SaveJSONToFile() writes v as indented JSON to dataDirPath/fileName
func SaveJSONToFile(v any, dataDirPath, fileName string) ErrorI {
	bz, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrJSONMarshal(err)
	}
	if err = os.WriteFile(filepath.Join(dataDirPath, fileName), bz, os.ModePerm); err != nil {
		return ErrWriteFile(err)
	}
	return nil
}

// LoadJSONFromFile() populates ptr from the JSON file at dataDirPath/fileName
func LoadJSONFromFile(ptr any, dataDirPath, fileName string) ErrorI {
	bz, err := os.ReadFile(filepath.Join(dataDirPath, fileName))
	if err != nil {
		return ErrReadFile(err)
	}
	return UnmarshalJSON(bz, ptr)
}

// HEX HELPERS BELOW

// BytesToString() hex encodes b
func BytesToString(b []byte) string { return hex.EncodeToString(b) }

// BytesToTruncatedString() hex encodes the leading bytes of a hash for log lines
func BytesToTruncatedString(b []byte) string {
	if len(b) > shortHashLen {
		b = b[:shortHashLen]
	}
	return hex.EncodeToString(b)
}

// HexBytes is a byte slice that travels as a hex string in JSON
type HexBytes []byte

// NewHexBytesFromString() decodes a hex string
func NewHexBytesFromString(s string) (HexBytes, ErrorI) {
	bz, err := hex.DecodeString(s)
	if err != nil {
		return nil, ErrStringToBytes(err)
	}
	return bz, nil
}

func (x HexBytes) String() string { return BytesToString(x) }

func (x HexBytes) MarshalJSON() ([]byte, error) { return json.Marshal(x.String()) }

func (x *HexBytes) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	decoded, err := NewHexBytesFromString(s)
	if err != nil {
		return err
	}
	*x = decoded
	return nil
}

// KEY HELPERS BELOW

// JoinLenPrefix() concatenates the non-nil segments, each preceded by a single length byte
func JoinLenPrefix(segments ...[]byte) (key []byte) {
	for _, s := range segments {
		if s == nil {
			continue
		}
		key = append(key, byte(len(s)))
		key = append(key, s...)
	}
	return
}

// DecodeLengthPrefixed() splits a key built by JoinLenPrefix() back into its segments
func DecodeLengthPrefixed(key []byte) (segments [][]byte, err ErrorI) {
	for i := 0; i < len(key); {
		end := i + 1 + int(key[i])
		if end > len(key) {
			return nil, ErrCorruptKey(key)
		}
		segments = append(segments, key[i+1:end])
		i = end
	}
	return
}

// Uint64ToBytes() encodes a number as 8 big endian bytes so keys sort by height
func Uint64ToBytes(u uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, u)
	return b
}

// BytesToUint64() decodes 8 big endian bytes; shorter input decodes to zero
func BytesToUint64(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
