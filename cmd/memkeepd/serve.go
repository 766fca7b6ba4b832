package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/ridgeway/memkeep/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Memory Tool Facade over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := httpapi.NewServer(tool, log)
		log.Info("starting http server", "event_type", "server_start", "addr", serveAddr)
		fmt.Printf("memkeepd listening on %s\n", serveAddr)
		return http.ListenAndServe(serveAddr, srv.Handler())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8085", "listen address")
	rootCmd.AddCommand(serveCmd)
}
