package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/tcriess/lightspeed-collab/config"
	"github.com/tcriess/lightspeed-collab/globals"
	"github.com/tcriess/lightspeed-collab/persistence"
)

// A very simple CLI tool for inspecting a running lightspeed-collab server and its event journal.

var (
	serverUrl  string
	configPath string
	limit      int
	httpClient = &http.Client{Timeout: 10 * time.Second}
)

// get fetches path from the server API and prints the (indented) JSON response.
func get(path string, query url.Values) error {
	u := strings.TrimSuffix(serverUrl, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := httpClient.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	var v interface{}
	err = json.Unmarshal(body, &v)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func main() {
	log.SetFlags(0)

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show rooms or events",
		Long:  `show is for printing live room information or journaled events of a running server.`,
	}
	var cmdShowRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show rooms",
		Long:  `show rooms lists all live rooms with their participant count and last activity.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/api/rooms", nil)
		},
	}
	var cmdShowRoom = &cobra.Command{
		Use:   "room [dashboard id]",
		Short: "Show room",
		Long:  `show room prints the participants and the shared view state of the room with the given id.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/api/rooms/"+url.PathEscape(args[0]), nil)
		},
	}
	var cmdShowEvents = &cobra.Command{
		Use:   "events [dashboard id]",
		Short: "Show events",
		Long:  `show events prints the latest journaled events of the room with the given id, newest first.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/api/rooms/"+url.PathEscape(args[0])+"/events", url.Values{"limit": []string{strconv.Itoa(limit)}})
		},
	}
	cmdShowEvents.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of events")

	var cmdJournal = &cobra.Command{
		Use:   "journal [dashboard id]",
		Short: "Read the journal directly",
		Long: `journal reads the events of the room with the given id (all rooms if omitted) directly from the configured
journal, without a running server. A buntdb journal is locked while the server runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			globalConfig, err := config.ReadConfiguration(configPath, nil)
			if err != nil {
				return err
			}
			globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))
			persister, err := persistence.NewPersister(globalConfig)
			if err != nil {
				return err
			}
			if persister == nil {
				return fmt.Errorf("no persistence configured")
			}
			defer persister.Close()
			roomId := ""
			if len(args) > 0 {
				roomId = args[0]
			}
			events, err := persister.GetEventHistory(roomId, time.Unix(0, 0), time.Now(), 0, limit)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(events, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmdJournal.Flags().StringVarP(&configPath, "config", "c", "", "path to config file or directory")
	cmdJournal.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of events")

	var rootCmd = &cobra.Command{Use: "collab-admin", SilenceUsage: true}
	rootCmd.PersistentFlags().StringVarP(&serverUrl, "server", "s", "http://localhost:3001", "server base url")
	rootCmd.AddCommand(cmdShow, cmdJournal)
	cmdShow.AddCommand(cmdShowRooms, cmdShowRoom, cmdShowEvents)
	if err := rootCmd.Execute(); err != nil {
		globals.AppLogger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
