package hwid

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/fnv"
	"io/ioutil"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/btcsuite/btcd/btcec"
)

// DefaultKeyfile is the name of the key file inside the data directory.
const DefaultKeyfile = "node_key"

// KeyProvider derives the unique identifier from a secp256k1 public key.
type KeyProvider struct {
	key    *ecdsa.PrivateKey
	unique uint32
}

// NewKeyProvider wraps an existing key.
func NewKeyProvider(key *ecdsa.PrivateKey) *KeyProvider {
	return &KeyProvider{
		key:    key,
		unique: PublicKeyID(&key.PublicKey),
	}
}

// Unique implements Provider.
func (k *KeyProvider) Unique() uint32 { return k.unique }

// PublicKeyHex returns the uncompressed public key in hexadecimal.
func (k *KeyProvider) PublicKeyHex() string {
	return fmt.Sprintf("0x%X", FromPublicKey(&k.key.PublicKey))
}

// Curve returns btcsuite's implementation of secp256k1.
func Curve() elliptic.Curve {
	return btcec.S256()
}

// GenerateKey creates a new private key on Curve.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(Curve(), rand.Reader)
}

// FromPublicKey returns the uncompressed form of pub.
func FromPublicKey(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(Curve(), pub.X, pub.Y)
}

// PublicKeyID is the FNV-1a hash of the uncompressed public key.
func PublicKeyID(pub *ecdsa.PublicKey) uint32 {
	h := fnv.New32a()
	h.Write(FromPublicKey(pub))
	return h.Sum32()
}

// ParsePrivateKey rebuilds a private key from its raw D value.
func ParsePrivateKey(d []byte) (*ecdsa.PrivateKey, error) {
	priv := new(ecdsa.PrivateKey)
	priv.PublicKey.Curve = Curve()

	if 8*len(d) != priv.Params().BitSize {
		return nil, fmt.Errorf("invalid length, need %d bits", priv.Params().BitSize)
	}

	priv.D = new(big.Int).SetBytes(d)

	if priv.D.Cmp(priv.Params().N) >= 0 {
		return nil, errors.New("invalid private key, >=N")
	}
	if priv.D.Sign() <= 0 {
		return nil, errors.New("invalid private key, zero or negative")
	}

	priv.PublicKey.X, priv.PublicKey.Y = priv.PublicKey.Curve.ScalarBaseMult(d)

	return priv, nil
}

// dumpPrivateKey returns D padded to the curve size.
func dumpPrivateKey(priv *ecdsa.PrivateKey) []byte {
	size := priv.Params().BitSize / 8
	d := priv.D.Bytes()
	if len(d) >= size {
		return d
	}
	ret := make([]byte, size)
	copy(ret[size-len(d):], d)
	return ret
}

// Keyfile reads and writes a raw hex dump of a private key.
type Keyfile struct {
	l    sync.Mutex
	path string
}

// NewKeyfile ...
func NewKeyfile(path string) *Keyfile {
	return &Keyfile{path: path}
}

// Path ...
func (k *Keyfile) Path() string { return k.path }

// ReadKey loads the key. The file must not be readable by group or others.
func (k *Keyfile) ReadKey() (*ecdsa.PrivateKey, error) {
	k.l.Lock()
	defer k.l.Unlock()

	info, err := os.Stat(k.path)
	if err != nil {
		return nil, err
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return nil, fmt.Errorf("%s permissions should exclude 'groups' and 'others'. Got %o", k.path, perm)
	}

	buf, err := ioutil.ReadFile(k.path)
	if err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(strings.TrimSpace(string(buf)))
	if err != nil {
		return nil, err
	}

	return ParsePrivateKey(raw)
}

// WriteKey stores the key, creating parent directories.
func (k *Keyfile) WriteKey(key *ecdsa.PrivateKey) error {
	k.l.Lock()
	defer k.l.Unlock()

	if err := os.MkdirAll(filepath.Dir(k.path), 0700); err != nil {
		return err
	}

	return ioutil.WriteFile(k.path, []byte(hex.EncodeToString(dumpPrivateKey(key))), 0600)
}

// LoadOrCreate returns a KeyProvider backed by the key in path, generating and
// saving a new key when the file does not exist yet.
func LoadOrCreate(path string) (*KeyProvider, bool, error) {
	kf := NewKeyfile(path)

	key, err := kf.ReadKey()
	if err == nil {
		return NewKeyProvider(key), false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, err
	}

	key, err = GenerateKey()
	if err != nil {
		return nil, false, err
	}
	if err := kf.WriteKey(key); err != nil {
		return nil, false, err
	}

	return NewKeyProvider(key), true, nil
}
