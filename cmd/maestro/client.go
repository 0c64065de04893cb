package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/maestro-sh/maestro"
)

// apiClient is a small HTTP client for the running daemon's control surface.
type apiClient struct {
	base string
	hc   *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{base: base, hc: &http.Client{Timeout: 30 * time.Second}}
}

func (c *apiClient) do(method, path string, out any) error {
	req, err := http.NewRequest(method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("%s", e.Error)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

func newStatusCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the status of all configured services",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var statuses []maestro.Status
			if err := newAPIClient(flags.APIURL).do(http.MethodGet, "/services", &statuses); err != nil {
				return err
			}
			printStatuses(statuses)
			return nil
		},
	}
}

func newStartCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start <group>",
		Short: "Start all services in a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []maestro.Status
			path := "/services/start/" + url.PathEscape(args[0])
			if err := newAPIClient(flags.APIURL).do(http.MethodPost, path, &statuses); err != nil {
				return err
			}
			printStatuses(statuses)
			return nil
		},
	}
}

func newStopCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <group>",
		Short: "Stop all running services in a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Message string `json:"message"`
			}
			path := "/services/stop/" + url.PathEscape(args[0])
			if err := newAPIClient(flags.APIURL).do(http.MethodPost, path, &resp); err != nil {
				return err
			}
			fmt.Println(resp.Message)
			return nil
		},
	}
}

func printStatuses(statuses []maestro.Status) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tGROUP\tSTATUS\tPID\tSINCE")
	for _, st := range statuses {
		pid := "-"
		since := "-"
		if st.PID != 0 {
			pid = fmt.Sprintf("%d", st.PID)
		}
		if st.StartedAt != nil {
			since = st.StartedAt.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", st.Name, st.GroupID, st.State, pid, since)
	}
	_ = w.Flush()
}
