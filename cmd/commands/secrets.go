package commands

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/dohr-michael/todoia/internal/config"
	"github.com/dohr-michael/todoia/internal/secrets"
)

// NewSecretsCommand returns the secrets subcommand.
func NewSecretsCommand() *cli.Command {
	keyArg := &cli.StringArg{Name: "key"}
	return &cli.Command{
		Name:  "secrets",
		Usage: "Manage age-encrypted secrets",
		Commands: []*cli.Command{
			{
				Name:   "keygen",
				Usage:  "Create the age key (kept when it already exists)",
				Action: runSecretsKeygen,
			},
			{
				Name:  "encrypt",
				Usage: "Print an ENC[age:...] value for config.jsonc",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "value"},
				},
				Action: runSecretsEncrypt,
			},
			{
				Name:      "set",
				Usage:     "Encrypt a value into the .env file (read from stdin)",
				Arguments: []cli.Argument{keyArg},
				Action:    runSecretsSet,
			},
			{
				Name:      "rm",
				Usage:     "Remove a key from the .env file",
				Arguments: []cli.Argument{keyArg},
				Action:    runSecretsRemove,
			},
			{
				Name:   "list",
				Usage:  "List the keys of the .env file",
				Action: runSecretsList,
			},
		},
		DefaultCommand: "list",
	}
}

func runSecretsKeygen(_ context.Context, _ *cli.Command) error {
	identity, err := secrets.GenerateIdentity(secrets.KeyPath())
	if err != nil {
		return err
	}
	fmt.Printf("Key: %s\nPublic key: %s\n", secrets.KeyPath(), identity.Recipient())
	return nil
}

func runSecretsEncrypt(_ context.Context, cmd *cli.Command) error {
	value := cmd.StringArg("value")
	if value == "" {
		var err error
		if value, err = readPassword("Value: "); err != nil {
			return err
		}
	}
	identity, err := secrets.LoadIdentity(secrets.KeyPath())
	if err != nil {
		return fmt.Errorf("%w (run: todoia secrets keygen)", err)
	}
	blob, err := secrets.Encrypt(value, identity.Recipient())
	if err != nil {
		return err
	}
	fmt.Println(blob)
	return nil
}

func runSecretsSet(_ context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("usage: todoia secrets set <KEY>")
	}
	value, err := readPassword(key + ": ")
	if err != nil {
		return err
	}
	identity, err := secrets.LoadIdentity(secrets.KeyPath())
	if err != nil {
		return fmt.Errorf("%w (run: todoia secrets keygen)", err)
	}
	blob, err := secrets.Encrypt(value, identity.Recipient())
	if err != nil {
		return err
	}
	if err := secrets.SetEntry(config.DotenvPath(), key, blob); err != nil {
		return err
	}
	fmt.Printf("%s stored in %s\n", key, config.DotenvPath())
	return nil
}

func runSecretsRemove(_ context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("usage: todoia secrets rm <KEY>")
	}
	found, err := secrets.RemoveEntry(config.DotenvPath(), key)
	if err != nil {
		return err
	}
	if !found {
		fmt.Printf("%s not found.\n", key)
		return nil
	}
	fmt.Printf("%s removed.\n", key)
	return nil
}

func runSecretsList(_ context.Context, _ *cli.Command) error {
	keys, err := secrets.Keys(config.DotenvPath())
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Println("No secrets found.")
		return nil
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tENCRYPTED")
	for _, k := range names {
		fmt.Fprintf(w, "%s\t%t\n", k, keys[k])
	}
	return w.Flush()
}
