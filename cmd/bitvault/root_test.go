package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bitvault/bitvault/btc"
	"github.com/bitvault/bitvault/spend"
	"github.com/bitvault/bitvault/vault"
	"github.com/bitvault/bitvault/vaultdb"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

const (
	rootKeyTestnet = "tprv8ZgxMBicQKsPejNXQLJKe3dBBs9Zrt53EZrsBzVLQ8rZji3" +
		"hVb3wcoRvgrjvTmjPG2ixoGUUkCyC6yBEy9T5gbLdvD2a5VmJbcFd5Q9pkAs"

	testTxid = "9f2a1d3e6c4b5a7980f1e2d3c4b5a69788796a5b4c3d2e1f0a1b2c3d" +
		"4e5f6071"

	testLabel = "savings"
)

type harness struct {
	t         *testing.T
	logBuffer *bytes.Buffer
	logger    btclog.Logger
	tempDir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	buf := &bytes.Buffer{}
	logBackend := btclog.NewDefaultHandler(buf)

	h := &harness{
		t:         t,
		logBuffer: buf,
		logger:    btclog.NewSLogger(logBackend.SubSystem("BVLT")),
		tempDir:   t.TempDir(),
	}

	h.logger.SetLevel(btclog.LevelTrace)
	log = h.logger
	for _, useLogger := range subSystems {
		useLogger(h.logger)
	}

	os.Clearenv()
	chainParams = &chaincfg.RegressionNetParams

	viper.Reset()
	viper.Set("datadir", h.tempDir)
	viper.Set("db.backend", vaultdb.BackendBolt)

	return h
}

func (h *harness) assertLogContains(format string) {
	h.t.Helper()

	require.Contains(h.t, h.logBuffer.String(), format)
}

// vault returns the vault the test root key derives for the label.
func (h *harness) vault(label string, spendDelay uint16) *vault.Vault {
	h.t.Helper()

	extendedKey, err := hdkeychain.NewKeyFromString(rootKeyTestnet)
	require.NoError(h.t, err)

	keys := &vault.HDKeySource{
		RootKey:     extendedKey,
		ChainParams: chainParams,
	}
	vaultKeys, err := keys.VaultKeys(label)
	require.NoError(h.t, err)

	v, err := vault.New(vaultKeys, spendDelay)
	require.NoError(h.t, err)

	return v
}

func (h *harness) createVault(label string, spendDelay uint16) {
	h.t.Helper()

	create := &createVaultCommand{
		SpendDelay: spendDelay,
		rootKey:    &rootKey{RootKey: rootKeyTestnet},
	}
	require.NoError(h.t, create.Execute(nil, []string{label}))
}

// explorer is an Esplora API mock that serves fixed unspent outputs and
// records published transactions.
type explorer struct {
	t         *testing.T
	server    *httptest.Server
	utxos     map[string][]*btc.UTXO
	mu        sync.Mutex
	published []*wire.MsgTx
}

func newExplorer(t *testing.T) *explorer {
	t.Helper()

	e := &explorer{
		t:     t,
		utxos: make(map[string][]*btc.UTXO),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/address/", func(w http.ResponseWriter,
		r *http.Request) {

		addr := strings.TrimSuffix(
			strings.TrimPrefix(r.URL.Path, "/address/"), "/utxo",
		)
		utxos := e.utxos[addr]
		if utxos == nil {
			utxos = []*btc.UTXO{}
		}
		_ = json.NewEncoder(w).Encode(utxos)
	})
	mux.HandleFunc("/tx", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		txBytes, err := hex.DecodeString(string(body))
		require.NoError(t, err)

		tx := &wire.MsgTx{}
		require.NoError(t, tx.Deserialize(bytes.NewReader(txBytes)))

		e.mu.Lock()
		e.published = append(e.published, tx)
		e.mu.Unlock()

		_, _ = w.Write([]byte(tx.TxHash().String()))
	})

	e.server = httptest.NewServer(mux)
	t.Cleanup(e.server.Close)

	viper.Set("ledger", ledgerEsplora)
	viper.Set("apiurl", e.server.URL)

	return e
}

func (e *explorer) addUTXO(addr string, value uint64) {
	e.utxos[addr] = append(e.utxos[addr], &btc.UTXO{
		Txid:  testTxid,
		Vout:  uint32(len(e.utxos[addr])),
		Value: value,
		Status: &btc.Status{
			Confirmed:   true,
			BlockHeight: 100,
		},
	})
}

func (e *explorer) lastPublished() *spend.FinalizedTx {
	e.mu.Lock()
	defer e.mu.Unlock()

	require.NotEmpty(e.t, e.published)

	return &spend.FinalizedTx{Tx: e.published[len(e.published)-1]}
}

func TestRootKeyFromConfig(t *testing.T) {
	_ = newHarness(t)

	viper.Set("rootkey", rootKeyTestnet)
	extendedKey, err := (&rootKey{}).read()
	require.NoError(t, err)
	require.Equal(t, rootKeyTestnet, extendedKey.String())

	_, err = (&rootKey{RootKey: "xprv-invalid"}).read()
	require.Error(t, err)
}

func TestRootKeyFromMnemonic(t *testing.T) {
	_ = newHarness(t)

	t.Setenv(btc.MnemonicEnvName, "abandon abandon abandon abandon "+
		"abandon abandon abandon abandon abandon abandon abandon about")
	t.Setenv(btc.PassphraseEnvName, "-")

	extendedKey, err := (&rootKey{}).read()
	require.NoError(t, err)
	require.True(t, extendedKey.IsPrivate())
}

func TestUnknownLedger(t *testing.T) {
	_ = newHarness(t)

	viper.Set("ledger", "electrum")
	_, err := newLedger()
	require.ErrorContains(t, err, "unknown ledger")
}

func TestSetupLogging(t *testing.T) {
	h := newHarness(t)

	viper.Set("debuglevel", "info,VLT=debug,SPND=trace")
	require.NoError(t, setupLogging())
	t.Cleanup(func() {
		require.NoError(t, logWriter.Close())
	})

	loggers := logManager.SubLoggers()
	require.Equal(t, btclog.LevelInfo, loggers[mainSubsystem].Level())
	require.Equal(t, btclog.LevelDebug, loggers[vault.Subsystem].Level())
	require.Equal(t, btclog.LevelTrace, loggers[spend.Subsystem].Level())
	require.Equal(t, btclog.LevelInfo, loggers[btc.Subsystem].Level())
	require.Equal(t, btclog.LevelInfo, loggers[vaultdb.Subsystem].Level())

	require.FileExists(t, filepath.Join(h.tempDir, "logs", logFileName))
	require.NoError(t, logWriter.Close())

	viper.Set("debuglevel", "info,NOPE=debug")
	require.ErrorContains(t, setupLogging(), "NOPE")
	require.NoError(t, logWriter.Close())

	viper.Set("debuglevel", "loud")
	require.ErrorContains(t, setupLogging(), "invalid")
}
