package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
)

type RSAKey struct {
	Kid     string
	Private *rsa.PrivateKey
	Public  *rsa.PublicKey
}

// KeyManager holds the signing key pair. It is loaded once at startup.
type KeyManager struct {
	Active *RSAKey
	byKid  map[string]*rsa.PublicKey
}

func LoadPrivateKeyPEM(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("invalid PEM")
	}
	switch block.Type {
	case "RSA PRIVATE KEY":
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	case "PRIVATE KEY":
		k, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rk, ok := k.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("not RSA key")
		}
		return rk, nil
	default:
		return nil, errors.New("unsupported key type: " + block.Type)
	}
}

func LoadPublicKeyPEM(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("invalid PEM")
	}
	switch block.Type {
	case "RSA PUBLIC KEY":
		return x509.ParsePKCS1PublicKey(block.Bytes)
	case "PUBLIC KEY":
		k, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		rk, ok := k.(*rsa.PublicKey)
		if !ok {
			return nil, errors.New("not RSA key")
		}
		return rk, nil
	default:
		return nil, errors.New("unsupported key type: " + block.Type)
	}
}

// NewKeyManager loads the private key and, when publicPath is set, the public key used
// for verification. Without a public key file the private key's public half is used.
func NewKeyManager(kid, privatePath, publicPath string) (*KeyManager, error) {
	priv, err := LoadPrivateKeyPEM(privatePath)
	if err != nil {
		return nil, err
	}
	pub := &priv.PublicKey
	if publicPath != "" {
		if pub, err = LoadPublicKeyPEM(publicPath); err != nil {
			return nil, err
		}
	}
	return NewKeyManagerFromKeys(kid, priv, pub), nil
}

func NewKeyManagerFromKeys(kid string, priv *rsa.PrivateKey, pub *rsa.PublicKey) *KeyManager {
	if pub == nil {
		pub = &priv.PublicKey
	}
	return &KeyManager{
		Active: &RSAKey{Kid: kid, Private: priv, Public: pub},
		byKid:  map[string]*rsa.PublicKey{kid: pub},
	}
}

// JWKS (RFC 7517), minimal RSA fields.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type JWKSet struct {
	Keys []jwk `json:"keys"`
}

func (km *KeyManager) JWKS() JWKSet {
	k := km.Active
	return JWKSet{Keys: []jwk{{
		Kty: "RSA",
		Kid: k.Kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(k.Public.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(k.Public.E)).Bytes()),
	}}}
}

func (km *KeyManager) PublicByKid(kid string) (*rsa.PublicKey, bool) {
	pk, ok := km.byKid[kid]
	return pk, ok
}
