package btc

import (
	"bufio"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/term"
)

const (
	// seedIterations is the number of PBKDF2 rounds of a BIP-0039 seed.
	seedIterations = 2048

	// seedLen is the length of a BIP-0039 seed in bytes.
	seedLen = 64

	// MnemonicEnvName is the environment variable a mnemonic can be
	// passed in instead of typing it into the terminal.
	MnemonicEnvName = "BITVAULT_MNEMONIC"

	// PassphraseEnvName is the environment variable holding the seed
	// passphrase. A single dash means the seed has no passphrase.
	PassphraseEnvName = "BITVAULT_PASSPHRASE"
)

// RootKeyFromMnemonic turns a 12 to 24 word BIP-0039 mnemonic and an optional
// passphrase into an extended root key.
func RootKeyFromMnemonic(mnemonic, passphrase string,
	params *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {

	// We'll trim off extra spaces, and ensure the mnemonic is all
	// lower case.
	mnemonic = strings.ToLower(strings.Join(strings.Fields(mnemonic), " "))

	words := strings.Split(mnemonic, " ")
	if len(words) < 12 || len(words) > 24 || len(words)%3 != 0 {
		return nil, errors.New("wrong mnemonic length: must be " +
			"between 12 and 24 words and a multiple of 3")
	}

	// Check that the mnemonic is valid, a typo would otherwise silently
	// lead to a different root key.
	if _, err := bip39.EntropyFromMnemonic(mnemonic); err != nil {
		return nil, fmt.Errorf("invalid mnemonic: %w", err)
	}

	seed := pbkdf2.Key(
		[]byte(mnemonic), []byte("mnemonic"+passphrase),
		seedIterations, seedLen, sha512.New,
	)

	rootKey, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master extended "+
			"key: %w", err)
	}

	return rootKey, nil
}

// ReadMnemonicFromTerminal prompts the user for their mnemonic and
// passphrase and returns the resulting extended root key. Both can also be
// set in the environment to automate things.
func ReadMnemonicFromTerminal(
	params *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {

	mnemonic := strings.TrimSpace(os.Getenv(MnemonicEnvName))
	if mnemonic == "" {
		return readMnemonic(os.Stdin, os.Stdout, params)
	}

	passphrase := strings.TrimSpace(os.Getenv(PassphraseEnvName))
	switch passphrase {
	// No passphrase.
	case "-":
		return RootKeyFromMnemonic(mnemonic, "", params)

	// Only the mnemonic is in the environment, ask for the passphrase.
	case "":
		passphrase, err := readPassphrase(
			os.Stdin, bufio.NewReader(os.Stdin), os.Stdout,
		)
		if err != nil {
			return nil, err
		}

		return RootKeyFromMnemonic(mnemonic, passphrase, params)

	default:
		return RootKeyFromMnemonic(mnemonic, passphrase, params)
	}
}

func readMnemonic(in io.Reader, out io.Writer,
	params *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {

	// We'll now prompt the user to enter in their 12 to 24 word mnemonic.
	_, _ = fmt.Fprintf(out, "Input your 12 to 24 word mnemonic "+
		"separated by spaces: ")
	reader := bufio.NewReader(in)
	mnemonic, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	_, _ = fmt.Fprintln(out)

	// Additionally, the user may have a passphrase that is needed to
	// derive the seed.
	var passphrase string
	passphrase, err = readPassphrase(in, reader, out)
	if err != nil {
		return nil, err
	}

	return RootKeyFromMnemonic(mnemonic, passphrase, params)
}

func readPassphrase(in io.Reader, reader *bufio.Reader,
	out io.Writer) (string, error) {

	_, _ = fmt.Fprintf(out, "Input your seed passphrase (press enter if "+
		"your seed doesn't have a passphrase): ")
	defer func() {
		_, _ = fmt.Fprintln(out)
	}()

	// Only use the password prompt if we're talking to a real terminal.
	file, ok := in.(*os.File)
	if ok && term.IsTerminal(int(file.Fd())) {
		fd := int(file.Fd())
		passphrase, err := term.ReadPassword(fd)
		if err != nil {
			return "", err
		}

		return string(passphrase), nil
	}

	passphrase, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	return strings.TrimSpace(passphrase), nil
}
