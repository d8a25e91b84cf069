// Package apicrypt turns captured API response bodies into decoded
// snapshots: AES-CBC with PKCS#7 padding around a msgpack document.
package apicrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/gravitas-games/sekaiscout/internal/gamemap"
)

var (
	// ErrCiphertext is returned for input that is empty or not a whole
	// number of blocks.
	ErrCiphertext = errors.New("apicrypt: invalid ciphertext length")
	// ErrPadding is returned when the decrypted block carries bad padding,
	// which usually means a wrong key.
	ErrPadding = errors.New("apicrypt: invalid padding")
)

// Decoder holds one key set. It is safe for concurrent use.
type Decoder struct {
	block cipher.Block
	iv    []byte
}

func NewDecoder(key, iv []byte) (*Decoder, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	if len(iv) != block.BlockSize() {
		return nil, fmt.Errorf("invalid iv: want %d bytes, got %d", block.BlockSize(), len(iv))
	}
	return &Decoder{block: block, iv: bytes.Clone(iv)}, nil
}

// Decrypt returns the plaintext of data.
func (d *Decoder) Decrypt(data []byte) ([]byte, error) {
	size := d.block.BlockSize()
	if len(data) == 0 || len(data)%size != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCiphertext, len(data))
	}
	plain := make([]byte, len(data))
	cipher.NewCBCDecrypter(d.block, d.iv).CryptBlocks(plain, data)

	n := int(plain[len(plain)-1])
	if n == 0 || n > size {
		return nil, ErrPadding
	}
	for _, b := range plain[len(plain)-n:] {
		if int(b) != n {
			return nil, ErrPadding
		}
	}
	return plain[:len(plain)-n], nil
}

// Decode decrypts data and unpacks the msgpack document inside.
func (d *Decoder) Decode(data []byte) (gamemap.Snapshot, error) {
	plain, err := d.Decrypt(data)
	if err != nil {
		return nil, err
	}
	var snap map[string]any
	if err := msgpack.Unmarshal(plain, &snap); err != nil {
		return nil, fmt.Errorf("failed to unpack payload: %w", err)
	}
	if snap == nil {
		return nil, errors.New("payload is not a map")
	}
	return gamemap.Snapshot(snap), nil
}
