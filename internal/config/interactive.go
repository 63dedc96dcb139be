package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// CommonBoards are offered by the interactive picker when no board is
// configured. Any other board can still be passed with --board.
var CommonBoards = []string{
	"native_sim",
	"qemu_x86",
	"qemu_cortex_m3",
	"nrf52840dk/nrf52840",
	"esp32_devkitc_wroom/esp32/procpu",
	"frdm_k64f",
	"stm32f4_disco",
}

// IsInteractive reports whether stdin is a terminal.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// PromptBoard asks the user to pick a target board. Callers gate on
// IsInteractive first; in non-interactive runs a missing board is a
// configuration error instead.
func PromptBoard() (string, error) {
	prompt := promptui.Select{
		Label: "Select target board",
		Items: CommonBoards,
		Size:  len(CommonBoards),
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "▸ {{ . | cyan }}",
			Inactive: "  {{ . }}",
			Selected: "✓ Board: {{ . | green }}",
		},
	}

	_, result, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return "", fmt.Errorf("board selection cancelled")
		}
		return "", err
	}
	return result, nil
}
