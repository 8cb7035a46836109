package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/visitrack/internal/output"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

var (
	logsServer string
	logsQuery  string
	logsType   string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List visitor log entries from a running server",
	Long: `List visitor log entries, newest first, from a running visitrack server.

Examples:
  visitrack logs
  visitrack logs -q rahul
  visitrack logs --type Denied -o json`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsServer, "server", "http://localhost:8080", "visitrack server base URL")
	logsCmd.Flags().StringVarP(&logsQuery, "query", "q", "", "case-insensitive name search")
	logsCmd.Flags().StringVarP(&logsType, "type", "t", "All", "entry type: All, Check-In, Check-Out, Denied")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, _ []string) error {
	et, err := types.ParseEntryFilter(logsType)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	entries, err := fetchLogs(cmd.Context(), client, logsServer, types.LogFilter{Search: logsQuery, EntryType: et})
	if err != nil {
		return err
	}

	if len(entries) == 0 && outputFmt != "json" {
		fmt.Fprintln(cmd.OutOrStdout(), "No entries found.")
		return nil
	}
	r := output.New(outputFmt, cmd.OutOrStdout())
	for _, e := range entries {
		if err := r.Render(e); err != nil {
			return err
		}
	}
	return nil
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func fetchLogs(ctx context.Context, client *http.Client, server string, f types.LogFilter) ([]types.LogEntry, error) {
	q := url.Values{}
	if f.Search != "" {
		q.Set("q", f.Search)
	}
	if f.EntryType != "" {
		q.Set("type", string(f.EntryType))
	}
	u := strings.TrimRight(server, "/") + "/v1/logs"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch logs: %w", err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, 8<<20)
	if resp.StatusCode != http.StatusOK {
		var ae apiError
		if json.NewDecoder(body).Decode(&ae) == nil && ae.Message != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, ae.Message)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var entries []types.LogEntry
	if err := json.NewDecoder(body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode logs: %w", err)
	}
	return entries, nil
}
