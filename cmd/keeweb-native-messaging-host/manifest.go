package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	clierrors "github.com/keeweb/keeweb-native-messaging-host/internal/errors"
	"github.com/keeweb/keeweb-native-messaging-host/internal/manifest"
	"github.com/keeweb/keeweb-native-messaging-host/internal/output"
)

// manifestFlags selects which browser and extension pairs a command acts on.
type manifestFlags struct {
	browsers   []string
	extensions []string
}

func (f *manifestFlags) register(cmd *cobra.Command, defaultBrowsers []string) {
	cmd.Flags().StringSliceVarP(&f.browsers, "browser", "b", defaultBrowsers, "Browsers: chrome, firefox, edge")
	cmd.Flags().StringSliceVarP(&f.extensions, "extension", "e", []string{string(manifest.KeeWebConnect)}, "Extensions: kwc (KeeWeb Connect), kpxc (KeePassXC-Browser)")
}

type manifestTarget struct {
	browser   manifest.Browser
	extension manifest.Extension
}

func (f *manifestFlags) targets() ([]manifestTarget, error) {
	var browsers []manifest.Browser

	for _, name := range f.browsers {
		b, err := manifest.ParseBrowser(name)
		if err != nil {
			return nil, clierrors.InvalidChoice("browser", name, browserNames())
		}

		browsers = append(browsers, b)
	}

	var targets []manifestTarget

	for _, name := range f.extensions {
		e, err := manifest.ParseExtension(name)
		if err != nil {
			return nil, clierrors.InvalidChoice("extension", name, extensionNames())
		}

		for _, b := range browsers {
			targets = append(targets, manifestTarget{browser: b, extension: e})
		}
	}

	return targets, nil
}

func browserNames() []string {
	var names []string
	for _, b := range manifest.Browsers() {
		names = append(names, string(b))
	}

	return names
}

func extensionNames() []string {
	var names []string
	for _, e := range manifest.Extensions() {
		names = append(names, string(e))
	}

	return names
}

// hostExecutable returns the absolute path browsers should start.
func hostExecutable(override string) (string, error) {
	path := override
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return "", fmt.Errorf("locate host executable: %w", err)
		}

		path = exe
	}

	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	return filepath.Abs(path)
}

func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Manage browser native messaging manifests",
		Long:  `Print, install or remove the manifests that let browsers start this host for KeeWeb Connect and KeePassXC-Browser.`,
	}

	cmd.AddCommand(newManifestPrintCmd())
	cmd.AddCommand(newManifestInstallCmd())
	cmd.AddCommand(newManifestUninstallCmd())

	return cmd
}

func newManifestPrintCmd() *cobra.Command {
	var (
		browser   string
		extension string
		hostPath  string
	)

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Print a manifest without installing it",
		Long:  `Write the manifest for one browser and extension to stdout, for packaging or manual installation.`,
		Example: `  ` + binaryName + ` manifest print --browser firefox
  ` + binaryName + ` manifest print --browser chrome --extension kpxc --path /usr/lib/keeweb/` + binaryName,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			b, err := manifest.ParseBrowser(browser)
			if err != nil {
				return clierrors.InvalidChoice("browser", browser, browserNames())
			}

			e, err := manifest.ParseExtension(extension)
			if err != nil {
				return clierrors.InvalidChoice("extension", extension, extensionNames())
			}

			path, err := hostExecutable(hostPath)
			if err != nil {
				return clierrors.ManifestFailed("build", err)
			}

			m, err := manifest.Build(b, e, path)
			if err != nil {
				return clierrors.ManifestFailed("build", err)
			}

			data, err := m.Marshal()
			if err != nil {
				return clierrors.ManifestFailed("build", err)
			}

			out.Print("%s", data)

			return nil
		},
	}

	cmd.Flags().StringVarP(&browser, "browser", "b", string(manifest.Chrome), "Browser: chrome, firefox, edge")
	cmd.Flags().StringVarP(&extension, "extension", "e", string(manifest.KeeWebConnect), "Extension: kwc, kpxc")
	cmd.Flags().StringVar(&hostPath, "path", "", "Host executable path (default: this binary)")

	return cmd
}

// manifestResult is the JSON form of one install or uninstall.
type manifestResult struct {
	Browser   string `json:"browser"`
	Extension string `json:"extension"`
	File      string `json:"file"`
	Key       string `json:"registry_key,omitempty"`
	Changed   bool   `json:"changed"`
}

func newManifestInstallCmd() *cobra.Command {
	var (
		flags    manifestFlags
		hostPath string
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install manifests for the current user",
		Long:  `Write manifests so the selected browsers can start this host. Existing manifests are replaced.`,
		Example: `  ` + binaryName + ` manifest install
  ` + binaryName + ` manifest install --browser firefox --extension kwc,kpxc`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			targets, err := flags.targets()
			if err != nil {
				return err
			}

			path, err := hostExecutable(hostPath)
			if err != nil {
				return clierrors.ManifestFailed("install", err)
			}

			installer := manifest.NewInstaller()

			var results []manifestResult

			for _, t := range targets {
				loc, err := installer.Install(t.browser, t.extension, path)
				if err != nil {
					return clierrors.ManifestFailed("install", err)
				}

				results = append(results, manifestResult{
					Browser:   string(t.browser),
					Extension: string(t.extension),
					File:      loc.File,
					Key:       loc.Key,
					Changed:   true,
				})

				if !out.JSON {
					out.Success("Installed %s manifest for %s", t.extension, t.browser)
					out.Muted("    %s", loc.File)
				}
			}

			if out.JSON {
				return out.PrintJSON(results)
			}

			return nil
		},
	}

	flags.register(cmd, browserNames())
	cmd.Flags().StringVar(&hostPath, "path", "", "Host executable path (default: this binary)")

	return cmd
}

func newManifestUninstallCmd() *cobra.Command {
	var flags manifestFlags

	cmd := &cobra.Command{
		Use:     "uninstall",
		Short:   "Remove installed manifests",
		Long:    `Remove the manifests, and on Windows the registry keys, for the selected browsers and extensions.`,
		Example: `  ` + binaryName + ` manifest uninstall --browser chrome,edge`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			targets, err := flags.targets()
			if err != nil {
				return err
			}

			installer := manifest.NewInstaller()

			var results []manifestResult

			for _, t := range targets {
				loc, removed, err := installer.Uninstall(t.browser, t.extension)
				if err != nil {
					return clierrors.ManifestFailed("remove", err)
				}

				results = append(results, manifestResult{
					Browser:   string(t.browser),
					Extension: string(t.extension),
					File:      loc.File,
					Key:       loc.Key,
					Changed:   removed,
				})

				if out.JSON {
					continue
				}

				if removed {
					out.Success("Removed %s manifest for %s", t.extension, t.browser)
				} else {
					out.Muted("No %s manifest installed for %s", t.extension, t.browser)
				}
			}

			if out.JSON {
				return out.PrintJSON(results)
			}

			return nil
		},
	}

	flags.register(cmd, browserNames())

	return cmd
}
