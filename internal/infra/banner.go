package infra

import (
	"fmt"
	"strings"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner. An insecure node URL gets a loud
// warning since the API key would travel in clear text.
func PrintBanner(cfg *Config) {
	color := ColorGreen
	transport := "TLS"
	if strings.HasPrefix(cfg.Node.URL, "http://") {
		color = ColorYellow
		transport = "PLAINTEXT (dev only)"
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#  Interverse SDK %-40s#%s\n", color, cfg.App.Version, ColorReset)
	fmt.Printf("%s#  Node:      %-44s#%s\n", color, cfg.Node.URL, ColorReset)
	fmt.Printf("%s#  Game:      %-44s#%s\n", color, cfg.Node.GameID, ColorReset)
	fmt.Printf("%s#  Transport: %-44s#%s\n", color, transport, ColorReset)
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
