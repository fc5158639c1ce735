//go:build e2e

package e2e_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tinkerbell/vultrds/internal/cmd"
)

func TestVultrds(t *testing.T) {
	// Build the root command so we can launch it as if a main() func would.
	serve, err := cmd.NewRootCommand()
	if err != nil {
		t.Fatal(err)
	}

	serve.SetArgs([]string{
		"serve",
		"--flatfile-path", "testdata/e2e.yml",
		"--http-port", "50061",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go serve.ExecuteContext(ctx)

	// Ensure the cmd goroutine is scheduled (by leaning on continuation behavior of the runtime)
	// and begins listening. Slower machines may need a longer delay.
	time.Sleep(50 * time.Millisecond)

	t.Run("Emulator", func(t *testing.T) {
		// We have unit tests to validate the APIs serve correct data. These tests are to validate
		// a static endpoint and a dynamic endpoint work as expected.
		cases := []struct {
			Name     string
			Endpoint string
			Expect   string
		}{
			{
				Name:     "StaticRoute",
				Endpoint: "/latest/meta-data/hostname",
				Expect:   "cloudinit-1",
			},
			{
				Name:     "DynamicRoute",
				Endpoint: "/v1/internal/app-wordpress",
				Expect:   "enabled",
			},
		}

		for _, tc := range cases {
			t.Run(tc.Name, func(t *testing.T) {
				request, err := http.NewRequest(
					http.MethodGet,
					"http://127.0.0.1:50061"+tc.Endpoint,
					nil,
				)
				if err != nil {
					t.Fatal(err)
				}

				request.Header.Add("Metadata-Token", "vultr")

				response, err := http.DefaultClient.Do(request)
				if err != nil {
					t.Fatal(err)
				}
				defer response.Body.Close()

				// Store the body in a buffer for comparison.
				var buf bytes.Buffer
				_, err = io.Copy(&buf, response.Body)
				if err != nil {
					t.Fatal(err)
				}

				if buf.String() != tc.Expect {
					t.Fatalf("Expected:\n%s\n\nReceived:\n%s\n", tc.Expect, buf.String())
				}
			})
		}
	})

	t.Run("Render", func(t *testing.T) {
		sysfs := t.TempDir()
		for path, content := range map[string]string{
			"class/dmi/id/sys_vendor": "Vultr",
			"class/net/ens3/address":  "56:00:03:9c:9a:0b",
			"class/net/ens7/address":  "5a:00:03:9c:9a:0b",
		} {
			if err := os.MkdirAll(filepath.Join(sysfs, filepath.Dir(path)), 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(filepath.Join(sysfs, path), []byte(content+"\n"), 0o444); err != nil {
				t.Fatal(err)
			}
		}

		render, err := cmd.NewRootCommand()
		if err != nil {
			t.Fatal(err)
		}

		var out bytes.Buffer
		render.SetOut(&out)
		render.SetArgs([]string{
			"render",
			"--metadata-url", "http://127.0.0.1:50061",
			"--metadata-retries", "0",
			"--sysfs", sysfs,
			"--cache-dir", t.TempDir(),
		})

		if err := render.ExecuteContext(ctx); err != nil {
			t.Fatal(err)
		}

		if !strings.Contains(out.String(), `"name":"ens3"`) {
			t.Fatalf("Expected network config for ens3; Received:\n%s", out.String())
		}
	})
}
