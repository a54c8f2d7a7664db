package zip

import "github.com/coldharbor/deflate/checksum"

// zcKeys is the three-word ZipCrypto key schedule, PKWARE APPNOTE §6.1.
type zcKeys [3]uint32

func newZCKeys(password string) zcKeys {
	k := zcKeys{0x12345678, 0x23456789, 0x34567890}
	for i := 0; i < len(password); i++ {
		k.update(password[i])
	}
	return k
}

func (k *zcKeys) update(b byte) {
	k[0] = checksum.Single(k[0], b)
	k[1] = (k[1]+(k[0]&0xff))*134775813 + 1
	k[2] = checksum.Single(k[2], byte(k[1]>>24))
}

// streamByte derives the next keystream byte without consuming it; the
// caller is responsible for calling update with the plaintext byte
// afterward, per the cipher's feedback structure.
func (k *zcKeys) streamByte() byte {
	tmp := uint16(k[2]&0xffff) | 2
	return byte((uint32(tmp) * uint32(tmp^1)) >> 8)
}

// zipCryptoHeaderLen is the random 12-byte header ZipCrypto prepends to
// every encrypted entry's data; its last byte carries the low byte of the
// entry's CRC-32 so a reader can cheaply reject a wrong password.
const zipCryptoHeaderLen = 12

// encryptZipCrypto encrypts plaintext into a new slice given a freshly primed key
// schedule (already updated with the password) and returns the 12-byte
// header to prepend, built from rnd with its final byte forced to the
// entry's CRC-32 low byte per open question (c)'s resolution.
func encryptZipCrypto(k zcKeys, rnd [zipCryptoHeaderLen]byte, crc32 uint32, plaintext []byte) (header [zipCryptoHeaderLen]byte, ciphertext []byte) {
	header = rnd
	header[zipCryptoHeaderLen-1] = byte(crc32)

	for i, b := range header {
		s := k.streamByte()
		header[i] = s ^ b
		k.update(b)
	}

	ciphertext = make([]byte, len(plaintext))
	for i, b := range plaintext {
		s := k.streamByte()
		ciphertext[i] = s ^ b
		k.update(b)
	}
	return header, ciphertext
}

// decryptZipCrypto reverses encryptZipCrypto given the password-primed key
// schedule, the stored 12-byte header, and the ciphertext. It returns
// ErrBadPassword if the header's CRC marker byte doesn't match the
// expected low byte of the entry's recorded CRC-32.
func decryptZipCrypto(k zcKeys, header [zipCryptoHeaderLen]byte, crc32 uint32, ciphertext []byte) ([]byte, error) {
	var lastPlain byte
	for _, c := range header {
		s := k.streamByte()
		lastPlain = s ^ c
		k.update(lastPlain)
	}
	if lastPlain != byte(crc32) {
		return nil, ErrBadPassword
	}

	plaintext := make([]byte, len(ciphertext))
	for i, c := range ciphertext {
		s := k.streamByte()
		p := s ^ c
		plaintext[i] = p
		k.update(p)
	}
	return plaintext, nil
}
