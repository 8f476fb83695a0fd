package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/volkshash/volkshash/cmd/rpc"
	"github.com/volkshash/volkshash/controller"
	"github.com/volkshash/volkshash/evo"
	"github.com/volkshash/volkshash/lib"
	"github.com/volkshash/volkshash/quorum"
	"github.com/volkshash/volkshash/store"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rootCmd = &cobra.Command{
	Use:   "volkshash",
	Short: "the volkshash quorum commitment node",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config = InitializeDataDirectory(DataDir, lib.NewDefaultLogger())
		l = lib.NewLogger(lib.LoggerConfig{Level: config.GetLogLevel()}, config.DataDirPath)
		client = rpc.NewClient("", config.RPCPort)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(rpc.SoftwareVersion)
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "start the quorum commitment node",
	Run: func(cmd *cobra.Command, args []string) {
		Start()
	},
}

var (
	client, config, l = &rpc.Client{}, lib.Config{}, lib.LoggerI(nil)
	DataDir           = ""
)

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.PersistentFlags().StringVar(&DataDir, "data-dir", lib.DefaultDataDirPath(), "custom data directory location")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// Start() is the entrypoint of the node
func Start() {
	// load the consensus parameters of the configured network
	network, err := quorum.ParamsForNetwork(config.Network, config.ActivationHeight)
	if err != nil {
		l.Fatal(err.Error())
	}
	// initialize the metrics server
	metrics := lib.NewMetricsServer(config.MetricsConfig, l)
	// create a new database object from the config
	db, err := store.New(config, l)
	if err != nil {
		l.Fatal(err.Error())
	}
	// load the masternode list if configured
	var mnList evo.MNListProvider
	if config.MNListFile != "" {
		list, e := evo.NewStaticMNListFromFile(config.DataDirPath, config.MNListFile)
		if e != nil {
			l.Fatal(e.Error())
		}
		entries, _ := list.GetMNList(nil)
		l.Infof("Loaded %d masternodes from %s", len(entries), config.MNListFile)
		mnList = list
	}
	// create a new instance of the application
	app, err := controller.New(config, network, GenesisBlock(config.Network), db, mnList, metrics, l)
	if err != nil {
		l.Fatal(err.Error())
	}
	tip := app.Tip()
	l.Infof("Network %s at height %d (%s), quorum types %v", network.Name, tip.Height, lib.BytesToString(tip.Hash), network.Types())
	// initialize the rpc server
	rpcServer := rpc.NewServer(app, config, l)
	// start the metrics server
	metrics.Start()
	// serve the rpc until a kill signal is received
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGABRT)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if e := rpcServer.ListenAndServe(); e != nil {
			return e
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		l.Infof("Exit command received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if e := rpcServer.Shutdown(shutdownCtx); e != nil {
			return e
		}
		return nil
	})
	if e := g.Wait(); e != nil {
		l.Error(e.Error())
	}
	// gracefully stop the app
	app.Stop()
	// gracefully stop the metrics server
	metrics.Stop()
	// exit
	os.Exit(0)
}

// GenesisBlock() returns the hard coded first block of a network
// The nonce keeps the genesis hashes of the networks distinct
func GenesisBlock(network string) *lib.Block {
	nonces := map[string]uint64{lib.MainNet: 0, lib.TestNet: 1, lib.DevNet: 2, lib.RegTestNet: 3}
	return lib.NewBlock(nil, nonces[network])
}

// InitializeDataDirectory() creates the data directory with a default config file if missing and loads the config
func InitializeDataDirectory(dataDirPath string, log lib.LoggerI) (c lib.Config) {
	if dataDirPath == "" {
		dataDirPath = lib.DefaultDataDirPath()
	}
	log.Debugf("Reading data directory at %s", dataDirPath)
	if err := os.MkdirAll(dataDirPath, os.ModePerm); err != nil {
		panic(err)
	}
	configFilePath := filepath.Join(dataDirPath, lib.ConfigFilePath)
	if _, err := os.Stat(configFilePath); errors.Is(err, os.ErrNotExist) {
		log.Infof("Creating %s file", lib.ConfigFilePath)
		if err = lib.DefaultConfig().WriteToFile(configFilePath); err != nil {
			panic(err)
		}
	}
	c, err := lib.NewConfigFromFile(configFilePath)
	if err != nil {
		panic(err)
	}
	c.DataDirPath = dataDirPath
	return
}

// writeToConsole() prints the result of a query or exits with the error
func writeToConsole(a any, err error) {
	if err != nil {
		l.Fatal(err.Error())
	}
	switch v := a.(type) {
	case int, uint32, uint64:
		p := message.NewPrinter(language.English)
		if _, e := p.Printf("%d\n", v); e != nil {
			l.Fatal(e.Error())
		}
	case string:
		fmt.Println(v)
	case *string:
		fmt.Println(*v)
	default:
		s, e := lib.MarshalJSONIndentString(a)
		if e != nil {
			l.Fatal(e.Error())
		}
		fmt.Println(s)
	}
}
