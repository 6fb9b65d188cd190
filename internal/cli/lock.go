package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"voice-assistant/internal/assistant"
)

var currentPassword string

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "lock",
		Short: "Lock the assistant; file, note and reminder commands are refused until unlocked",
		Args:  cobra.NoArgs,
		RunE:  runLock,
	})
	RootCmd.AddCommand(&cobra.Command{
		Use:   "unlock <password>",
		Short: "Unlock the assistant",
		Args:  cobra.ExactArgs(1),
		RunE:  runUnlock,
	})

	passwd := &cobra.Command{
		Use:   "passwd <new-password>",
		Short: "Set or change the unlock password",
		Args:  cobra.ExactArgs(1),
		RunE:  runPasswd,
	}
	passwd.Flags().StringVar(&currentPassword, "current", "", "Current password, required once one is set")
	RootCmd.AddCommand(passwd)
}

// lockSession is a session that only manages the lock; it never routes.
func lockSession() (*assistant.Session, error) {
	gate, err := openGate(cfg)
	if err != nil {
		return nil, err
	}
	return assistant.NewSession(nil, gate, nil, log), nil
}

func runLock(cmd *cobra.Command, _ []string) error {
	s, err := lockSession()
	if err != nil {
		return err
	}
	if err := s.Lock(); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "System locked.")
	return err
}

func runUnlock(cmd *cobra.Command, args []string) error {
	s, err := lockSession()
	if err != nil {
		return err
	}
	if err := s.Unlock(args[0]); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "System unlocked.")
	return err
}

func runPasswd(cmd *cobra.Command, args []string) error {
	s, err := lockSession()
	if err != nil {
		return err
	}
	if err := s.SetPassword(currentPassword, args[0]); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), "Password updated.")
	return err
}
