package release

import (
	"context"
	"fmt"
	"strings"

	"frida-keeper/cmd/root"
	"frida-keeper/internal/models"
	"frida-keeper/internal/utils"
	"frida-keeper/services"

	"github.com/dustin/go-humanize"
	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var optLimit int

var releasesCmd = &cobra.Command{
	Use:   "releases",
	Short: "List releases that ship a server for this platform",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := listReleases(context.Background()); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 *	Fields displayed in list format
 */
type Release_Columns struct {
	Tag       string `json:"tag"`
	Published string `json:"published"`
	Assets    int    `json:"assets"`
	Installed string `json:"installed"`
	Saved     string `json:"saved"`
}

/**
 * List releases with install and saved markers
 * @description
 * - The installed mark compares the release tag with the install record
 */
func listReleases(ctx context.Context) error {
	keeper, err := services.GetKeeper()
	if err != nil {
		return err
	}
	releases, err := keeper.ListReleases(ctx)
	if err != nil {
		return err
	}
	if optLimit > 0 && len(releases) > optLimit {
		releases = releases[:optLimit]
	}
	if len(releases) == 0 {
		fmt.Println("No releases found")
		return nil
	}

	installed := ""
	if rec := keeper.Installer().InstalledRecord(); rec != nil {
		installed = rec.Version
	}
	saved := make(map[string]bool)
	for _, v := range keeper.Prefs().SavedVersions() {
		saved[v] = true
	}

	var dataList []*orderedmap.OrderedMap
	for _, rel := range releases {
		row := Release_Columns{
			Tag:       rel.DisplayName(),
			Published: "-",
			Assets:    countServerAssets(rel),
		}
		if !rel.PublishedAt.IsZero() {
			row.Published = humanize.Time(rel.PublishedAt)
		}
		if rel.TagName == installed {
			row.Installed = "*"
		}
		if saved[rel.TagName] {
			row.Saved = "*"
		}
		recordMap, _ := utils.StructToOrderedMap(row)
		dataList = append(dataList, recordMap)
	}
	utils.PrintFormat(dataList)
	return nil
}

func countServerAssets(rel models.Release) int {
	n := 0
	for _, a := range rel.Assets {
		if strings.Contains(a.Name, "-server-") {
			n++
		}
	}
	return n
}

func init() {
	releasesCmd.Flags().IntVarP(&optLimit, "limit", "n", 20, "Maximum number of releases to show")
	root.RootCmd.AddCommand(releasesCmd)
}
