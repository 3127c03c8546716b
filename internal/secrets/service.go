package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/argon2"
)

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// Service шифрует коды доступа принтеров для хранения в БД.
// Ключ выводится из мастер-секрета (auth.creds_key) через argon2id,
// шифрование — AES-256-GCM, nonce в префиксе шифртекста.
// Пустой мастер-секрет — plaintext-режим (dev без БД-секретов).
type Service struct {
	key []byte // nil — шифрование выключено
}

func New(masterKey string) *Service {
	if masterKey == "" {
		return &Service{}
	}
	key := argon2.IDKey([]byte(masterKey), []byte("spool-creds"), 1, 64*1024, 1, 32)
	return &Service{key: key}
}

func (s *Service) Enabled() bool { return s.key != nil }

// Seal шифрует код доступа. В plaintext-режиме возвращает вход как есть.
func (s *Service) Seal(plain []byte) ([]byte, error) {
	if s.key == nil {
		return plain, nil
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

// Open расшифровывает код доступа, запечатанный Seal.
func (s *Service) Open(sealed []byte) ([]byte, error) {
	if s.key == nil {
		return sealed, nil
	}
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, ErrCiphertextTooShort
	}
	nonce, ct := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ct, nil)
}
