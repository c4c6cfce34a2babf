package main

import (
	"fmt"
	"io"
	"os"

	"trainmystery/internal/config"
	"trainmystery/internal/game"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Println("usage: roles <catalog.yaml>")
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Stdout); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// run validates a role catalog file and prints the roles a server would deal
func run(path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	roles, err := config.ParseRoles(data)
	if err != nil {
		return err
	}
	registry, err := game.NewRegistryFromConfig(roles)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Role catalog %s\n", path)
	fmt.Fprintln(out, "===================================")
	for _, role := range registry.Roles() {
		if role.ID == game.NoRoleID {
			continue
		}
		kind := "generic"
		if role.Special() {
			kind = "special"
		}
		state := ""
		if !registry.Enabled(role.ID) {
			state = " (disabled)"
		}
		fmt.Fprintf(out, "- %-28s %-9s %-8s #%06X%s\n", role.ID, role.Faction(), kind, role.Color, state)
	}
	fmt.Fprintf(out, "%d custom roles, %d disabled\n", len(roles.Custom), len(roles.Disabled))
	return nil
}
