package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/EricMoy7/n8n-discord-bot/pkg/config"
	"github.com/EricMoy7/n8n-discord-bot/pkg/configops"
)

var (
	statusTitleStyle = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	statusLabelStyle = lipgloss.NewStyle().Width(18).Foreground(lipgloss.Color("8"))
	statusOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	statusBadStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

type statusRow struct {
	label string
	value string
	ok    *bool
}

func statusCmd() {
	configPath := getConfigPath()
	cfg, loadErr := config.LoadConfig(configPath)

	fmt.Println(statusTitleStyle.Render(fmt.Sprintf("%s n8ncord Status", logo)))

	_, statErr := os.Stat(configPath)
	rows := []statusRow{
		{label: "Config", value: configPath, ok: boolPtr(statErr == nil)},
	}
	if loadErr != nil {
		rows = append(rows, statusRow{label: "Config load", value: loadErr.Error(), ok: boolPtr(false)})
		printStatusRows(rows)
		return
	}

	verrs := config.Validate(cfg)
	validity := "valid"
	if len(verrs) > 0 {
		parts := make([]string, 0, len(verrs))
		for _, e := range verrs {
			parts = append(parts, e.Error())
		}
		validity = strings.Join(parts, "; ")
	}
	rows = append(rows, statusRow{label: "Validation", value: validity, ok: boolPtr(len(verrs) == 0)})

	pid, running := relayPID(configPath)
	runValue := "not running"
	if running {
		runValue = fmt.Sprintf("running (pid %d)", pid)
	}
	rows = append(rows,
		statusRow{label: "Relay", value: runValue, ok: boolPtr(running)},
		statusRow{label: "Bot token", value: secretState(cfg.Discord.Token), ok: boolPtr(cfg.Discord.Token != "")},
		statusRow{label: "Guild", value: orUnset(cfg.Discord.GuildID)},
		statusRow{label: "Command", value: "/" + cfg.Discord.CommandName},
		statusRow{label: "Webhook", value: orUnset(webhookHost(cfg.Webhook.URL))},
		statusRow{label: "Webhook auth", value: secretState(cfg.Webhook.Secret)},
		statusRow{label: "Timeouts", value: fmt.Sprintf("%s text / %s attachments", cfg.TextTimeout(), cfg.AttachmentTimeout())},
	)
	if cfg.Gateway.Enabled {
		rows = append(rows, statusRow{label: "Health", value: "http://" + cfg.GatewayAddr() + "/health"})
	}
	rows = append(rows, statusRow{label: "Sentinel", value: fmt.Sprintf("%v (%s)", cfg.Sentinel.Enabled, cfg.Sentinel.Schedule)})
	rows = append(rows, statusRow{label: "Logging", value: fmt.Sprintf("%v (level %s)", cfg.Logging.Enabled, cfg.Logging.Level)})
	if cfg.Logging.Enabled {
		rows = append(rows,
			statusRow{label: "Log file", value: cfg.LogFilePath()},
			statusRow{label: "Log rotation", value: fmt.Sprintf("%d MB, %d days", cfg.Logging.MaxSizeMB, cfg.Logging.RetentionDays)},
		)
	}

	printStatusRows(rows)
}

func printStatusRows(rows []statusRow) {
	for _, row := range rows {
		value := row.value
		if row.ok != nil {
			if *row.ok {
				value = statusOKStyle.Render("✓ " + value)
			} else {
				value = statusBadStyle.Render("✗ " + value)
			}
		}
		fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top, statusLabelStyle.Render(row.label), value))
	}
}

// relayPID reads the pid file and probes the process with signal 0.
func relayPID(configPath string) (int, bool) {
	data, err := os.ReadFile(filepath.Join(filepath.Dir(configPath), configops.PIDFileName))
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, false
	}
	return pid, proc.Signal(syscall.Signal(0)) == nil
}

func secretState(v string) string {
	if v == "" {
		return "not set"
	}
	return "set"
}

func orUnset(v string) string {
	if v == "" {
		return "not set"
	}
	return v
}

func boolPtr(b bool) *bool {
	return &b
}
