package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/go-pwsafe/pwsafe/internal/pwsafe"
)

var log = logrus.New()

func main() {
	err := newRootCmd().Execute()
	pwsafe.Teardown()
	if err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pwsafe-tool",
		Short: "Inspect and build PasswordSafe V1/V2/V3 database files",
	}
	root.PersistentFlags().String("passphrase", "", "database passphrase (falls back to "+pwsafe.EnvPassphrase+")")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")
	viper.BindPFlag("passphrase", root.PersistentFlags().Lookup("passphrase"))
	viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	viper.SetEnvPrefix("pwsafe")
	viper.BindEnv("passphrase", pwsafe.EnvPassphrase)

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if viper.GetBool("verbose") {
			log.SetLevel(logrus.DebugLevel)
		}
	}

	root.AddCommand(newVerifyCmd(), newDumpHeaderCmd(), newListCmd(), newWriteCmd())
	return root
}

func passphrase() ([]byte, error) {
	p := viper.GetString("passphrase")
	if p == "" {
		return nil, fmt.Errorf("passphrase required: set --passphrase or %s", pwsafe.EnvPassphrase)
	}
	return []byte(p), nil
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Attempt to open a file and report its status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			r := pwsafe.NewReader(args[0], pass)
			defer r.Close()
			result, err := r.Load()
			if err != nil {
				return err
			}
			switch result.Status {
			case pwsafe.StatusOK:
				log.WithField("version", result.Version).Info("ok")
				fmt.Println("ok", result.Version)
				if err := result.Err(); err != nil {
					log.WithError(err).Warn("checksum mismatch")
					fmt.Println("warning:", err)
				}
			case pwsafe.StatusWrongPassphrase:
				fmt.Println("wrong-passphrase")
			case pwsafe.StatusWrongFormat:
				fmt.Println("wrong-format")
			}
			return nil
		},
	}
}

func newDumpHeaderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump-header <file>",
		Short: "Print the V3 header field list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			r := pwsafe.NewReader(args[0], pass)
			defer r.Close()
			result, err := r.Load()
			if err != nil {
				return err
			}
			if result.Status != pwsafe.StatusOK {
				fmt.Println(statusLabel(result.Status))
				return nil
			}
			if result.Header == nil {
				fmt.Println("no header field area for", result.Version)
				return nil
			}
			result.Header.Each(func(f *pwsafe.RawField) {
				fmt.Printf("0x%02x: %d bytes\n", f.Type(), f.Length())
			})
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "List every record and its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			r := pwsafe.NewReader(args[0], pass)
			defer r.Close()
			result, err := r.Load()
			if err != nil {
				return err
			}
			if result.Status != pwsafe.StatusOK {
				fmt.Println(statusLabel(result.Status))
				return nil
			}
			for i, rec := range result.Records {
				fmt.Printf("record %d:\n", i)
				for _, f := range rec.Fields {
					data := f.GetData()
					preview := data
					if len(preview) > 16 {
						preview = preview[:16]
					}
					fmt.Printf("  0x%02x len=%d %s\n", f.Type(), f.Length(), hex.EncodeToString(preview))
				}
			}
			return nil
		},
	}
}

func newWriteCmd() *cobra.Command {
	var title, user, password string
	cmd := &cobra.Command{
		Use:   "write <file>",
		Short: "Write a new V3 file containing one record built from flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, err := passphrase()
			if err != nil {
				return err
			}
			titleField := pwsafe.NewTextField(0x03, &title)
			userField := pwsafe.NewTextField(0x04, &user)
			passField := pwsafe.NewTextField(0x06, &password)
			endField := pwsafe.NewRawField(pwsafe.EndOfRecordType, nil)
			record := pwsafe.Record{Fields: []*pwsafe.RawField{titleField, userField, passField, endField}}

			w := pwsafe.NewWriter(args[0], pass, pwsafe.V3, 0)
			defer w.Close()
			if err := w.Save(nil, []pwsafe.Record{record}); err != nil {
				return err
			}
			log.WithField("file", args[0]).Info("wrote database")
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "Untitled", "record title")
	cmd.Flags().StringVar(&user, "user", "", "record username")
	cmd.Flags().StringVar(&password, "password", "", "record password")
	return cmd
}

func statusLabel(s pwsafe.Status) string {
	switch s {
	case pwsafe.StatusWrongPassphrase:
		return "wrong-passphrase"
	case pwsafe.StatusWrongFormat:
		return "wrong-format"
	default:
		return "unknown"
	}
}
