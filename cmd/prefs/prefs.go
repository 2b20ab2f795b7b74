package prefs

import (
	"fmt"
	"strconv"

	"frida-keeper/cmd/output"
	"frida-keeper/cmd/root"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/services"

	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "User preferences (get/set)",
	Long: `Preferences: port (server port), auto_start (start the server at boot), dark_theme.
Saved versions are managed with 'frida-keeper saved'.`,
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Show preferences",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := getPrefs(); err != nil {
			fmt.Println(err)
		}
	},
}

var setCmd = &cobra.Command{
	Use:       "set <port|auto_start|dark_theme> <value>",
	Short:     "Change one preference",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"port", "auto_start", "dark_theme"},
	Run: func(cmd *cobra.Command, args []string) {
		if err := setPref(args[0], args[1]); err != nil {
			fmt.Println(err)
		}
	},
}

func localView(k *services.Keeper) *models.PreferencesView {
	port := k.Prefs().ServerPort()
	autoStart := k.Prefs().AutoStartEnabled()
	dark := k.Prefs().DarkTheme()
	return &models.PreferencesView{ServerPort: &port, AutoStart: &autoStart, DarkTheme: &dark, SavedVersions: k.Prefs().SavedVersions()}
}

func printView(v *models.PreferencesView) {
	if v.ServerPort != nil {
		fmt.Printf("port:           %d\n", *v.ServerPort)
	}
	if v.AutoStart != nil {
		fmt.Printf("auto_start:     %t\n", *v.AutoStart)
	}
	if v.DarkTheme != nil {
		fmt.Printf("dark_theme:     %t\n", *v.DarkTheme)
	}
	fmt.Printf("saved_versions: %v\n", v.SavedVersions)
}

func getPrefs() error {
	if client := output.Daemon(); client != nil {
		defer client.Close()
		resp, err := client.Get(controllers.API_PREFIX+"/prefs", nil)
		if err != nil {
			return err
		}
		var v models.PreferencesView
		if err := resp.Decode(&v); err != nil {
			return err
		}
		printView(&v)
		return nil
	}
	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	printView(localView(keeper))
	return nil
}

/**
 * Parse a key/value pair into a partial preferences update
 */
func parseUpdate(key, value string) (*models.PreferencesView, error) {
	var update models.PreferencesView
	switch key {
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid port: %s", value)
		}
		update.ServerPort = &port
	case "auto_start", "dark_theme":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean: %s", value)
		}
		if key == "auto_start" {
			update.AutoStart = &b
		} else {
			update.DarkTheme = &b
		}
	default:
		return nil, fmt.Errorf("unknown preference: %s", key)
	}
	return &update, nil
}

func setPref(key, value string) error {
	update, err := parseUpdate(key, value)
	if err != nil {
		return err
	}
	if client := output.Daemon(); client != nil {
		defer client.Close()
		resp, err := client.Put(controllers.API_PREFIX+"/prefs", update)
		if err != nil {
			return err
		}
		var v models.PreferencesView
		if err := resp.Decode(&v); err != nil {
			return err
		}
		printView(&v)
		return nil
	}

	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	prefs := keeper.Prefs()
	switch {
	case update.ServerPort != nil:
		err = prefs.SetServerPort(*update.ServerPort)
	case update.AutoStart != nil:
		err = prefs.SetAutoStartEnabled(*update.AutoStart)
	case update.DarkTheme != nil:
		err = prefs.SetDarkTheme(*update.DarkTheme)
	}
	if err != nil {
		return err
	}
	printView(localView(keeper))
	return nil
}

func init() {
	root.RootCmd.AddCommand(prefsCmd)
	prefsCmd.AddCommand(getCmd, setCmd)
}
