package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

func serviceCmd() {
	args := os.Args[2:]
	if len(args) == 0 || args[0] == "install" {
		if err := serviceInstallCmd(); err != nil {
			fmt.Printf("%s Error registering relay service: %v\n", failMark, err)
			os.Exit(1)
		}
		return
	}

	switch args[0] {
	case "start", "stop", "restart", "status":
		if err := serviceControlCmd(args[0]); err != nil {
			fmt.Printf("%s Error: %v\n", failMark, err)
			os.Exit(1)
		}
	case "uninstall":
		if err := serviceUninstallCmd(); err != nil {
			fmt.Printf("%s Service uninstall failed: %v\n", failMark, err)
			os.Exit(1)
		}
		fmt.Printf("%s Relay service uninstalled\n", okMark)
	default:
		fmt.Printf("Unknown service command: %s\n", args[0])
		fmt.Println("Usage: n8ncord service [install|start|stop|restart|status|uninstall]")
	}
}

func serviceInstallCmd() error {
	scope, unitPath, err := detectServiceScopeAndPath()
	if err != nil {
		return err
	}

	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable path failed: %w", err)
	}
	exePath, _ = filepath.Abs(exePath)
	configPath, _ := filepath.Abs(getConfigPath())
	workDir := filepath.Dir(exePath)

	unitContent := buildServiceUnitContent(scope, exePath, configPath, workDir)
	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return fmt.Errorf("create service directory failed: %w", err)
	}
	if err := os.WriteFile(unitPath, []byte(unitContent), 0644); err != nil {
		return fmt.Errorf("write service unit failed: %w", err)
	}

	if err := runSystemctl(scope, "daemon-reload"); err != nil {
		return err
	}
	if err := runSystemctl(scope, "enable", relayServiceName); err != nil {
		return err
	}

	fmt.Printf("%s Relay service registered: %s (%s)\n", okMark, relayServiceName, scope)
	fmt.Printf("  Unit file: %s\n", unitPath)
	fmt.Println("  Start service:   n8ncord service start")
	fmt.Println("  Restart service: n8ncord service restart")
	fmt.Println("  Stop service:    n8ncord service stop")
	return nil
}

func serviceControlCmd(action string) error {
	scope, _, err := detectInstalledService()
	if err != nil {
		return err
	}
	return runSystemctl(scope, action, relayServiceName)
}

func serviceUninstallCmd() error {
	scope, unitPath, err := detectInstalledService()
	if err != nil {
		return err
	}

	_ = runSystemctl(scope, "stop", relayServiceName)
	_ = runSystemctl(scope, "disable", relayServiceName)

	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove unit file failed: %w", err)
	}
	return runSystemctl(scope, "daemon-reload")
}

func detectServiceScopeAndPath() (string, string, error) {
	if runtime.GOOS != "linux" {
		return "", "", fmt.Errorf("service registration currently supports Linux systemd only")
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envServiceScope))) {
	case "user":
		return userServiceUnitPath()
	case "system":
		return "system", "/etc/systemd/system/" + relayServiceName, nil
	}
	if os.Geteuid() == 0 {
		return "system", "/etc/systemd/system/" + relayServiceName, nil
	}
	return userServiceUnitPath()
}

func userServiceUnitPath() (string, string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("resolve user home failed: %w", err)
	}
	return "user", filepath.Join(home, ".config", "systemd", "user", relayServiceName), nil
}

func detectInstalledService() (string, string, error) {
	systemPath := "/etc/systemd/system/" + relayServiceName
	if info, err := os.Stat(systemPath); err == nil && !info.IsDir() {
		return "system", systemPath, nil
	}

	scope, userPath, err := userServiceUnitPath()
	if err != nil {
		return "", "", err
	}
	if info, err := os.Stat(userPath); err == nil && !info.IsDir() {
		return scope, userPath, nil
	}

	return "", "", fmt.Errorf("relay service not registered. Run: n8ncord service")
}

func buildServiceUnitContent(scope, exePath, configPath, workDir string) string {
	quotedExec := fmt.Sprintf("%q run --config %q", exePath, configPath)
	installTarget := "default.target"
	if scope == "system" {
		installTarget = "multi-user.target"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = filepath.Dir(configPath)
	}

	return fmt.Sprintf(`[Unit]
Description=n8ncord Discord to n8n relay
After=network-online.target
Wants=network-online.target

[Service]
Type=simple
WorkingDirectory=%s
ExecStart=%s
ExecReload=/bin/kill -HUP $MAINPID
Restart=always
RestartSec=3
Environment=%s=%s
Environment=HOME=%s

[Install]
WantedBy=%s
`, workDir, quotedExec, envConfigPath, configPath, home, installTarget)
}

func runSystemctl(scope string, args ...string) error {
	cmdArgs := make([]string, 0, len(args)+1)
	if scope == "user" {
		cmdArgs = append(cmdArgs, "--user")
	}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.Command("systemctl", cmdArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if scope == "user" {
			return fmt.Errorf("systemctl --user %s failed: %w", strings.Join(args, " "), err)
		}
		return fmt.Errorf("systemctl %s failed: %w", strings.Join(args, " "), err)
	}
	return nil
}
