package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/mongolink/config"
	"github.com/sagarc03/mongolink/driver/mongodriver"
	"github.com/sagarc03/mongolink/settings"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Manage saved connections",
	Long: `Manage named connections in the connections file.

Saved connections are appended to the configured mongodb_settings when any
command runs, so an alias added here can be checked, shown or served.

Connections are stored in ~/.mongolink/connections.yaml unless
--connections or connections_file points elsewhere.`,
}

var configureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved connections",
	RunE:  runConfigureList,
}

var configureAddCmd = &cobra.Command{
	Use:   "add <alias>",
	Short: "Add or update a connection",
	Long: `Add a connection interactively.

You will be prompted for:
  - Host
  - Port
  - Database
  - Username and password
  - Read preference

The connection is tested before saving.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigureAdd,
}

var configureRemoveCmd = &cobra.Command{
	Use:     "remove <alias>",
	Aliases: []string{"rm"},
	Short:   "Remove a connection",
	Args:    cobra.ExactArgs(1),
	RunE:    runConfigureRemove,
}

var showSecrets bool

var readPreferences = []string{"primary", "primaryPreferred", "secondary", "secondaryPreferred", "nearest"}

func init() {
	configureCmd.AddCommand(configureListCmd)
	configureCmd.AddCommand(configureAddCmd)
	configureCmd.AddCommand(configureRemoveCmd)

	configureListCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "show passwords")
}

func connectionsPath(cmd *cobra.Command) (string, error) {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return "", err
	}
	if cfg.ConnectionsFile == "" {
		return "", errors.New("cannot determine connections file path, use --connections")
	}
	return cfg.ConnectionsFile, nil
}

func runConfigureList(cmd *cobra.Command, _ []string) error {
	path, err := connectionsPath(cmd)
	if err != nil {
		return err
	}

	file, err := config.LoadConnectionsFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Println("No connections configured.")
			fmt.Println("Run 'mongolink configure add <alias>' to create one.")
			return nil
		}
		return fmt.Errorf("load connections: %w", err)
	}

	return getFormatter().FormatConnections(os.Stdout, file.Connections, showSecrets)
}

func runConfigureAdd(cmd *cobra.Command, args []string) error {
	alias := args[0]
	path, err := connectionsPath(cmd)
	if err != nil {
		return err
	}

	file, err := config.LoadConnectionsFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load connections: %w", err)
		}
		file = &config.ConnectionsFile{}
	}

	existing, _ := file.Get(alias)
	if existing != nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Connection '%s' already exists. Update it", alias),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	conn, err := promptConnection(alias, existing)
	if err != nil {
		return handlePromptError(err)
	}

	fmt.Print("Testing connection... ")
	if err := testConnection(cmd.Context(), *conn); err != nil {
		fmt.Println("failed")
		fmt.Printf("  %v\n", err)

		prompt := promptui.Prompt{
			Label:     "Save anyway",
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	} else {
		fmt.Println("ok")
	}

	if existing != nil {
		err = file.Update(*conn)
	} else {
		err = file.Add(*conn)
	}
	if err != nil {
		return err
	}

	if err := file.Save(path); err != nil {
		return fmt.Errorf("save connections: %w", err)
	}

	fmt.Printf("Connection '%s' saved to %s\n", alias, path)
	return nil
}

func promptConnection(alias string, existing *config.Connection) (*config.Connection, error) {
	defaults := config.Connection{
		Host:           settings.DefaultHost,
		Port:           settings.DefaultPort,
		ReadPreference: readPreferences[0],
	}
	if existing != nil {
		defaults = *existing
	}

	hostPrompt := promptui.Prompt{
		Label:   "Host",
		Default: defaults.Host,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("host is required")
			}
			return nil
		},
	}
	host, err := hostPrompt.Run()
	if err != nil {
		return nil, err
	}

	portPrompt := promptui.Prompt{
		Label:    "Port",
		Default:  strconv.Itoa(defaults.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, err
	}
	port, _ := strconv.Atoi(portStr)

	dbPrompt := promptui.Prompt{
		Label:   "Database",
		Default: defaults.DB,
	}
	db, err := dbPrompt.Run()
	if err != nil {
		return nil, err
	}

	userPrompt := promptui.Prompt{
		Label:   "Username",
		Default: defaults.Username,
	}
	username, err := userPrompt.Run()
	if err != nil {
		return nil, err
	}

	password := ""
	if username != "" {
		passwordPrompt := promptui.Prompt{
			Label: "Password",
			Mask:  '*',
		}
		password, err = passwordPrompt.Run()
		if err != nil {
			return nil, err
		}
	}

	rpSelect := promptui.Select{
		Label:     "Read preference",
		Items:     readPreferences,
		CursorPos: max(0, indexOf(readPreferences, defaults.ReadPreference)),
	}
	_, readPref, err := rpSelect.Run()
	if err != nil {
		return nil, err
	}

	return &config.Connection{
		Alias:          alias,
		Host:           strings.TrimSpace(host),
		Port:           port,
		DB:             db,
		Username:       username,
		Password:       password,
		ReadPreference: readPref,
		ReplicaSet:     defaults.ReplicaSet,
		Options:        defaults.Options,
	}, nil
}

func validatePort(input string) error {
	port, err := strconv.Atoi(input)
	if err != nil {
		return errors.New("port must be a number")
	}
	if port < 0 || port > 65535 {
		return errors.New("port must be between 0 and 65535")
	}
	return nil
}

func indexOf(items []string, s string) int {
	for i, item := range items {
		if strings.EqualFold(item, s) {
			return i
		}
	}
	return -1
}

// testConnection resolves conn as the manager would and pings it.
func testConnection(ctx context.Context, conn config.Connection) error {
	desc, err := settings.Resolve(conn.Settings(), settings.KeepPassword())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client, err := mongodriver.New().Connect(ctx, desc)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.WithoutCancel(ctx)) }()

	return client.Ping(ctx)
}

func runConfigureRemove(cmd *cobra.Command, args []string) error {
	alias := args[0]
	path, err := connectionsPath(cmd)
	if err != nil {
		return err
	}

	file, err := config.LoadConnectionsFile(path)
	if err != nil {
		return fmt.Errorf("load connections: %w", err)
	}

	if _, err = file.Get(alias); err != nil {
		return err
	}

	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Remove connection '%s'", alias),
		IsConfirm: true,
	}
	if _, promptErr := prompt.Run(); promptErr != nil {
		fmt.Println("Cancelled.")
		return nil //nolint:nilerr // User cancelled, not an error
	}

	if err := file.Remove(alias); err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}

	if err := file.Save(path); err != nil {
		return fmt.Errorf("save connections: %w", err)
	}

	fmt.Printf("Connection '%s' removed.\n", alias)
	return nil
}

func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
