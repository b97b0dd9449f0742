package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ruteri/driving-tests-backend/cmd/flags"
	"github.com/ruteri/driving-tests-backend/cryptoutils"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "keygen",
		Usage: "Generate the RSA key pair used to protect stored credentials",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "out-dir",
				Value: ".",
				Usage: "directory to write public-key.pem and private-key.pem to",
			},
			&cli.IntFlag{
				Name:  "bits",
				Value: cryptoutils.DefaultKeyBits,
				Usage: "RSA modulus size",
			},
			&cli.BoolFlag{
				Name:  "force",
				Value: false,
				Usage: "overwrite existing key files",
			},
			flags.LogJsonFlag,
			flags.LogDebugFlag,
			flags.LogUidFlag,
			flags.LogServiceFlagFn("drive-tests-keygen"),
		},
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			outDir := cCtx.String("out-dir")
			bits := cCtx.Int("bits")

			publicPath := filepath.Join(outDir, "public-key.pem")
			privatePath := filepath.Join(outDir, "private-key.pem")
			if !cCtx.Bool("force") {
				for _, path := range []string{publicPath, privatePath} {
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("%s already exists, use --force to overwrite", path)
					}
				}
			}

			publicPEM, privatePEM, err := cryptoutils.GenerateKeyPairPEM(bits)
			if err != nil {
				logger.Error("Failed to generate key pair", "err", err)
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(privatePath, privatePEM, 0o600); err != nil {
				return err
			}
			if err := os.WriteFile(publicPath, publicPEM, 0o644); err != nil {
				return err
			}

			pub, err := cryptoutils.ParsePublicKeyPEM(publicPEM)
			if err != nil {
				return err
			}
			fingerprint, err := cryptoutils.KeyFingerprint(pub)
			if err != nil {
				return err
			}

			logger.Info("Generated key pair",
				"bits", bits,
				"public", publicPath,
				"private", privatePath,
				"fingerprint", fingerprint)
			fmt.Println(fingerprint)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
