package cmd

import (
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/veltabank/bankweb/apiclient"
	"github.com/veltabank/bankweb/config"
	"github.com/veltabank/bankweb/server"
	"github.com/veltabank/bankweb/session"
)

// options for this cmd.
var (
	configPath string
	listenAddr string
	logFile    string
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web front-end server",
	Long: `Start the web front-end server.

--config should be the path to a YAML config file.

It is recommended to use the environment variable "BANKWEB_CONFIG" for this.

The following is the config structure:

	{
	    Listen         string
	    APIURL         string
	    ExternalOrigin string
	    SessionCookie  string
	    SessionTTL     uint64
	    Redis struct {
	        Addr, Password string
	        DB             int
	    }
	    ReloadTime     uint64
	}

APIURL is the base URL of the banking REST API that all requests are sent
to. ExternalOrigin is the origin this server is reachable on from a
browser, used to build the payment processor return URLs. If Redis.Addr
is empty, sessions are held in memory and die with the process.

--listen overrides the Listen address from the config.
--logfile log to the given file instead of stderr.
`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		envMap := map[string]string{
			"BANKWEB_CONFIG": "config",
		}

		return checkEnvVarFlags(cmd, envMap)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		if logFile != "" {
			logToFile(logFile)
		}

		conf, err := config.ParseConfig(configPath)
		if err != nil {
			return err
		}

		api, err := apiclient.New(conf.APIURL())
		if err != nil {
			return err
		}

		var store session.Store = session.NewMemoryStore()

		if rc := conf.Redis(); rc.Addr != "" {
			store = session.NewRedisStore(redis.NewClient(&redis.Options{
				Addr:     rc.Addr,
				Password: rc.Password,
				DB:       rc.DB,
			}))
		}

		sessions := session.NewManager(api, store, conf.SessionTTL())

		srv, err := server.New(conf, api, sessions)
		if err != nil {
			return err
		}

		addr := listenAddr
		if addr == "" {
			addr = conf.Listen()
		}

		info("listening on %s", addr)

		return http.ListenAndServe(addr, srv) //nolint:gosec
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)

	// flags specific to this sub-command
	serveCmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("BANKWEB_CONFIG"),
		"path to the YAML config file")
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "address to listen on, overrides config")
	serveCmd.Flags().StringVar(&logFile, "logfile", "", "log to this file instead of stderr")

	serveCmd.MarkFlagRequired("config") //nolint:errcheck
}
