package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitvault/bitvault/btc"
	"github.com/bitvault/bitvault/spend"
	"github.com/bitvault/bitvault/vault"
	"github.com/bitvault/bitvault/vaultdb"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btclog/v2"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/build"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	defaultAPIURL        = "https://blockstream.info/api"
	defaultTestnetAPIURL = "https://blockstream.info/testnet/api"
	defaultSignetAPIURL  = "https://mempool.space/signet/api"
	defaultRegtestAPIURL = "http://localhost:3004"

	defaultBitcoindHost = "localhost:18443"

	defaultFeeSatPerVByte = 10
	defaultSpendDelay     = 10

	ledgerBitcoind = "bitcoind"
	ledgerEsplora  = "esplora"

	logFileName      = "bitvault.log"
	maxLogFileSizeMB = 10
	maxLogFiles      = 3

	// mainSubsystem is the log tag of the command line tool itself.
	mainSubsystem = "BVLT"

	// version is the current version of the tool.
	version = "0.1.0"

	Commit = ""
)

var (
	Testnet bool
	Regtest bool
	Signet  bool

	log         btclog.Logger = btclog.Disabled
	logWriter   *build.RotatingLogWriter
	logManager  *build.SubLoggerManager
	chainParams = &chaincfg.MainNetParams

	// defaultDataDir is the default directory for the vault store and the
	// log files.
	defaultDataDir = btcutil.AppDataDir("bitvault", false)

	// subSystems are the loggers of all packages, by their tag.
	subSystems = map[string]func(btclog.Logger){
		vault.Subsystem:   vault.UseLogger,
		spend.Subsystem:   spend.UseLogger,
		btc.Subsystem:     btc.UseLogger,
		vaultdb.Subsystem: vaultdb.UseLogger,
	}
)

var rootCmd = &cobra.Command{
	Use:   "bitvault",
	Short: "Bitvault creates and spends covenant vaults",
	Long: `This tool creates OP_VAULT/OP_CHECKTEMPLATEVERIFY vaults and
builds the transactions that trigger a withdrawal, complete it after the spend
delay or sweep the funds to the recovery key at any time.
Both opcodes are only active on custom signets and regtest forks.`,
	Version: fmt.Sprintf("v%s, commit %s", version, Commit),
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		switch {
		case Testnet:
			chainParams = &chaincfg.TestNet3Params

		case Regtest:
			chainParams = &chaincfg.RegressionNetParams

		case Signet:
			chainParams = &chaincfg.SigNetParams

		default:
			chainParams = &chaincfg.MainNetParams
		}

		if err := loadConfig(); err != nil {
			return err
		}

		if err := setupLogging(); err != nil {
			return err
		}

		log.Infof("bitvault version v%s commit %s", version, Commit)

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if logWriter != nil {
			_ = logWriter.Close()
		}
	},
	DisableAutoGenTag: true,
	SilenceUsage:      true,
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(
		&Testnet, "testnet", "t", false, "Indicates if testnet "+
			"parameters should be used",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&Regtest, "regtest", "r", false, "Indicates if regtest "+
			"parameters should be used",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&Signet, "signet", "s", false, "Indicates if the public "+
			"signet parameters should be used",
	)
	rootCmd.PersistentFlags().String("conf", "", "Path to an optional "+
		"config file (yaml/toml/json)",
	)
	rootCmd.PersistentFlags().String("datadir", defaultDataDir, "The "+
		"directory the vault store and the log files are kept in",
	)
	rootCmd.PersistentFlags().String("debuglevel", "info", "The log "+
		"level (trace/debug/info/warn/error/critical/off) for all "+
		"subsystems, optionally followed by <subsystem>=<level> "+
		"pairs, e.g. info,VLT=debug",
	)

	// Store settings.
	rootCmd.PersistentFlags().String("db.backend", vaultdb.BackendBolt,
		"The selected database backend (bolt/sqlite)",
	)
	rootCmd.PersistentFlags().Duration("db.bolt.dbtimeout", 10*time.Second,
		"Specify the timeout value used when opening the database",
	)
	rootCmd.PersistentFlags().Duration("db.sqlite.timeout", 10*time.Second,
		"Specify the timeout value used for sqlite queries",
	)

	// Ledger settings.
	rootCmd.PersistentFlags().String("ledger", ledgerEsplora, "The "+
		"backend used to look up and publish transactions "+
		"(bitcoind/esplora)",
	)
	rootCmd.PersistentFlags().String("apiurl", defaultAPIURL, "API URL "+
		"to use (must be esplora compatible)",
	)
	rootCmd.PersistentFlags().String("bitcoind.rpchost",
		defaultBitcoindHost, "The host:port of the bitcoind RPC "+
			"interface",
	)
	rootCmd.PersistentFlags().String("bitcoind.rpcuser", "", "The "+
		"bitcoind RPC user name",
	)
	rootCmd.PersistentFlags().String("bitcoind.rpcpass", "", "The "+
		"bitcoind RPC password",
	)

	// Bind flags to viper.
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error binding flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(
		newCreateVaultCommand(),
		newCreateTriggerCommand(),
		newDocCommand(),
		newFundVaultCommand(),
		newImportKeyCommand(),
		newListVaultCommand(),
		newNewRootKeyCommand(),
		newRecoverCommand(),
		newShowVaultCommand(),
		newWithdrawCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig sets up the environment variable lookup and reads the optional
// config file. Command line flags always take precedence.
func loadConfig() error {
	viper.SetEnvPrefix("BITVAULT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	confFile := viper.GetString("conf")
	if confFile == "" {
		return nil
	}

	viper.SetConfigFile(confFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", confFile,
			err)
	}

	return nil
}

func setupLogging() error {
	logFile := filepath.Join(
		viper.GetString("datadir"), "logs", logFileName,
	)

	logConfig := build.DefaultLogConfig()
	logConfig.File.MaxLogFiles = maxLogFiles
	logConfig.File.MaxLogFileSize = maxLogFileSizeMB

	logWriter = build.NewRotatingLogWriter()
	err := logWriter.InitLogRotator(logConfig.File, logFile)
	if err != nil {
		return fmt.Errorf("error initializing log rotator: %w", err)
	}

	logManager = build.NewSubLoggerManager(
		build.NewDefaultLogHandlers(logConfig, logWriter)...,
	)

	log = build.NewSubLogger(mainSubsystem, genSubLogger(logManager))
	for tag, useLogger := range subSystems {
		addSubLogger(tag, useLogger)
	}

	err = build.ParseAndSetDebugLevels(
		viper.GetString("debuglevel"), logManager,
	)
	if err != nil {
		return fmt.Errorf("error setting debug level: %w", err)
	}

	return nil
}

// genSubLogger creates a sub logger with an empty shutdown function.
func genSubLogger(
	manager *build.SubLoggerManager) func(string) btclog.Logger {

	return func(s string) btclog.Logger {
		return manager.GenSubLogger(s, func() {})
	}
}

// addSubLogger is a helper method to conveniently create and register the
// logger of a sub system.
func addSubLogger(subsystem string, useLogger func(btclog.Logger)) {
	useLogger(build.NewSubLogger(subsystem, genSubLogger(logManager)))
}

// logClosure is used to defer expensive log formatting until the message is
// actually logged.
type logClosure func() string

func (c logClosure) String() string {
	return c()
}

func spewClosure(a any) logClosure {
	return func() string {
		return spew.Sdump(a)
	}
}

type rootKey struct {
	RootKey string
}

func newRootKey(cmd *cobra.Command, desc string) *rootKey {
	r := &rootKey{}
	cmd.Flags().StringVar(
		&r.RootKey, "rootkey", "", "BIP32 HD root key of the wallet "+
			"to use for "+desc+"; leave empty to read it from the "+
			"config or to prompt for a BIP39 mnemonic",
	)

	return r
}

func (r *rootKey) read() (*hdkeychain.ExtendedKey, error) {
	// Check that root key is valid or fall back to console input.
	switch {
	case r.RootKey != "":
		return hdkeychain.NewKeyFromString(r.RootKey)

	case viper.GetString("rootkey") != "":
		return hdkeychain.NewKeyFromString(viper.GetString("rootkey"))

	default:
		return btc.ReadMnemonicFromTerminal(chainParams)
	}
}

func (r *rootKey) keySource() (*vault.HDKeySource, error) {
	extendedKey, err := r.read()
	if err != nil {
		return nil, fmt.Errorf("error reading root key: %w", err)
	}

	return &vault.HDKeySource{
		RootKey:     extendedKey,
		ChainParams: chainParams,
	}, nil
}

// dbTimeout returns the timeout setting of the selected store backend.
func dbTimeout() time.Duration {
	if viper.GetString("db.backend") == vaultdb.BackendSqlite {
		return viper.GetDuration("db.sqlite.timeout")
	}

	return viper.GetDuration("db.bolt.dbtimeout")
}

func openStore() (vaultdb.Store, error) {
	store, err := vaultdb.Open(&vaultdb.Config{
		Backend: viper.GetString("db.backend"),
		DataDir: viper.GetString("datadir"),
		Timeout: dbTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening vault store: %w", err)
	}

	return store, nil
}

// loadVault re-derives the keys of the stored vault with the given label and
// rebuilds it. The result must match the stored address, otherwise the root
// key is not the one the vault was created with.
func loadVault(keys vault.KeySource, label string) (*vault.Vault, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorf("Error closing vault store: %v", err)
		}
	}()

	record, err := store.Fetch(label)
	if err != nil {
		return nil, err
	}

	vaultKeys, err := keys.VaultKeys(label)
	if err != nil {
		return nil, err
	}

	v, err := vault.New(vaultKeys, record.SpendDelay)
	if err != nil {
		return nil, err
	}

	addr, err := v.Address(chainParams)
	if err != nil {
		return nil, err
	}
	if addr.EncodeAddress() != record.Address {
		return nil, fmt.Errorf("vault %s re-derived to address %s but "+
			"%s is stored, wrong root key or network?", label,
			addr.EncodeAddress(), record.Address)
	}

	return v, nil
}

func newLedger() (btc.Ledger, error) {
	switch viper.GetString("ledger") {
	case ledgerBitcoind:
		return newBitcoind()

	case ledgerEsplora, "":
		return newExplorerAPI(viper.GetString("apiurl")), nil

	default:
		return nil, fmt.Errorf("unknown ledger: %s",
			viper.GetString("ledger"))
	}
}

// withLedger runs f with the configured ledger and releases the bitcoind RPC
// client afterwards.
func withLedger(f func(btc.Ledger) error) error {
	ledger, err := newLedger()
	if err != nil {
		return err
	}

	if bitcoind, ok := ledger.(*btc.Bitcoind); ok {
		defer bitcoind.Shutdown()
	}

	return f(ledger)
}

func newBitcoind() (*btc.Bitcoind, error) {
	if viper.GetString("bitcoind.rpchost") == "" {
		return nil, errors.New("bitcoind RPC host is required")
	}

	return btc.NewBitcoind(&btc.BitcoindConfig{
		Host: viper.GetString("bitcoind.rpchost"),
		User: viper.GetString("bitcoind.rpcuser"),
		Pass: viper.GetString("bitcoind.rpcpass"),
	}, chainParams)
}

func newExplorerAPI(apiURL string) *btc.ExplorerAPI {
	// Override for the other networks if the default is used.
	if apiURL == defaultAPIURL {
		switch chainParams.Name {
		case chaincfg.TestNet3Params.Name:
			apiURL = defaultTestnetAPIURL

		case chaincfg.SigNetParams.Name:
			apiURL = defaultSignetAPIURL

		case chaincfg.RegressionNetParams.Name:
			apiURL = defaultRegtestAPIURL
		}
	}

	return btc.NewExplorerAPI(apiURL)
}

// findCoin returns the spent output either from the explicitly given outpoint
// and amount or by looking it up on the ledger.
func findCoin(addr btcutil.Address, outpoint string,
	amount uint64) (*btc.Coin, error) {

	var op *wire.OutPoint
	if outpoint != "" {
		parsed, err := btc.ParseOutPoint(outpoint)
		if err != nil {
			return nil, fmt.Errorf("error parsing outpoint: %w",
				err)
		}

		// Nothing to look up if the amount is known.
		if amount > 0 {
			return &btc.Coin{
				OutPoint: *parsed,
				Value:    btcutil.Amount(amount),
			}, nil
		}
		op = parsed
	}

	var coin *btc.Coin
	err := withLedger(func(ledger btc.Ledger) error {
		var err error
		coin, err = btc.FindCoin(ledger, addr, op)
		return err
	})
	if err != nil {
		return nil, err
	}

	return coin, nil
}

// publish broadcasts the transaction on the configured ledger.
func publish(tx *spend.FinalizedTx) error {
	return withLedger(func(ledger btc.Ledger) error {
		txid, err := ledger.PublishTx(tx.Tx)
		if err != nil {
			return fmt.Errorf("error publishing tx: %w", err)
		}

		log.Infof("Published TX %s", txid)

		return nil
	})
}

// printTx prints the hex encoded transaction and logs its content.
func printTx(name string, tx *spend.FinalizedTx) error {
	txHex, err := tx.Hex()
	if err != nil {
		return err
	}

	log.Debugf("%s transaction: %v", name, spewClosure(tx.Tx))

	result := fmt.Sprintf("%s transaction %v:\n%s", name, tx.Tx.TxHash(),
		txHex)
	fmt.Println(result)

	// For the tests, also log as trace level which is disabled by default.
	log.Tracef("%s", result)

	return nil
}
