// cmd/tools/registry-updater/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	commonerrors "iopps-workers/internal/common/errors"
	"iopps-workers/pkg/registry"
)

const defaultRegistryPath = "configs/activity-registry.json"

func main() {
	listCmd := flag.NewFlagSet("list", flag.ExitOnError)
	updateCmd := flag.NewFlagSet("update", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	listPath := listCmd.String("path", defaultRegistryPath, "Path to registry file")

	updatePath := updateCmd.String("path", defaultRegistryPath, "Path to registry file")
	idUpdate := updateCmd.String("id", "", "Activity ID to update")
	field := updateCmd.String("field", "", "Field to update (status, version, displayName, description, timeout, retries)")
	value := updateCmd.String("value", "", "New value for the field")

	validatePath := validateCmd.String("path", defaultRegistryPath, "Path to registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "list":
		_ = listCmd.Parse(os.Args[2:])
		reg := mustLoad(*listPath)
		activities := append([]registry.Activity(nil), reg.Activities...)
		sort.Slice(activities, func(i, j int) bool { return activities[i].TaskType < activities[j].TaskType })
		for _, a := range activities {
			fmt.Printf("%-20s %-14s %-12s timeout=%-4s retries=%d %v\n",
				a.TaskType, a.Category, a.ImplementationStatus, a.Timeout, a.Retries, a.ErrorCodes)
		}

	case "update":
		_ = updateCmd.Parse(os.Args[2:])
		if *idUpdate == "" || *field == "" || *value == "" {
			fmt.Println("Error: id, field, and value are required for update.")
			updateCmd.Usage()
			os.Exit(1)
		}
		reg := mustLoad(*updatePath)
		if err := reg.Update(*idUpdate, *field, *value); err != nil {
			fail("Error updating activity: %v", err)
		}
		if err := reg.Save(*updatePath); err != nil {
			fail("Error saving registry: %v", err)
		}
		fmt.Printf("Updated activity %s, field %s to %s\n", *idUpdate, *field, *value)

	case "validate":
		_ = validateCmd.Parse(os.Args[2:])
		reg := mustLoad(*validatePath)
		if err := reg.Validate(knownErrorCode); err != nil {
			fail("Registry validation failed: %v", err)
		}
		fmt.Printf("Registry validation passed. Found %d activities.\n", len(reg.Activities))

	default:
		help()
	}
}

func knownErrorCode(code string) bool {
	_, ok := commonerrors.BPMNErrorMapping[commonerrors.ErrorCode(code)]
	return ok
}

func mustLoad(path string) *registry.ActivityRegistry {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		fail("failed to load registry: %v", err)
	}
	return reg
}

func fail(format string, args ...interface{}) {
	fmt.Printf(format+"\n", args...)
	os.Exit(1)
}

func help() {
	fmt.Println(`
Usage: registry-updater <command> [flags]

Commands:
  list      Print every activity in the registry
  update    Update an existing activity's field
  validate  Validate the registry file
  help      Show this help message

Examples:
  registry-updater list
  registry-updater update -id search-jobs -field status -value verified
  registry-updater validate -path configs/activity-registry.json`)
}
