package main

import (
	"fmt"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/fakeserver"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	fakePort    *int
	fakePending *int
)

func init() {
	fakePort = fakeServerCmd.Flags().Int("port", 3000, "Port to listen on.")
	fakePending = fakeServerCmd.Flags().Int("pending", 0, "Unfinished poll responses per session before results.")
	rootCmd.AddCommand(fakeServerCmd)
}

var fakeServerCmd = &cobra.Command{
	Use:   "fakeserver [--port 3000] [--pending 0]",
	Short: "Serves canned provider pages for local runs with PROVIDER_ENV=fake.",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := fakeserver.NewApp(fakeserver.Options{PendingPolls: *fakePending})

		go func() {
			<-cmd.Context().Done()
			_ = app.ShutdownWithTimeout(5 * time.Second)
		}()

		logrus.WithFields(logrus.Fields{
			"port":    *fakePort,
			"pending": *fakePending,
		}).Info("Fake provider server starting")
		return app.Listen(fmt.Sprintf(":%d", *fakePort))
	},
}
