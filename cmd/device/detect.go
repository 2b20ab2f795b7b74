package device

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"frida-keeper/cmd/output"
	"frida-keeper/cmd/root"
	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/internal/utils"
	"frida-keeper/services"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var optDetectJSON bool

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run the instrumentation detector",
	Long:  "Run the configured detector (detect.command) and show which checks found traces of frida.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := detect(context.Background()); err != nil {
			fmt.Println(err)
		}
	},
}

/**
 *	Fields displayed in list format
 */
type Detection_Columns struct {
	Technique string `json:"technique"`
	Detected  string `json:"detected"`
	Severity  string `json:"severity"`
	Details   string `json:"details"`
}

func scan(ctx context.Context) (*models.DetectionSummary, error) {
	if client := output.Daemon(); client != nil {
		defer client.Close()
		resp, err := client.Post(controllers.API_PREFIX+"/detect", nil)
		if err != nil {
			return nil, err
		}
		var body struct {
			Summary json.RawMessage `json:"summary"`
		}
		if err := resp.Decode(&body); err != nil {
			return nil, err
		}
		var summary models.DetectionSummary
		if err := json.Unmarshal(body.Summary, &summary); err != nil {
			return nil, err
		}
		return &summary, nil
	}
	keeper, err := services.GetKeeper()
	if err != nil {
		return nil, err
	}
	return keeper.Detector().Scan(ctx)
}

func detect(ctx context.Context) error {
	summary, err := scan(ctx)
	if err != nil {
		return err
	}
	if optDetectJSON {
		return utils.PrintJSON(summary)
	}
	var dataList []*orderedmap.OrderedMap
	for _, r := range summary.Results {
		row := Detection_Columns{
			Technique: r.Technique,
			Detected:  "no",
			Severity:  r.Severity.String(),
			Details:   strings.TrimSpace(r.Details),
		}
		if r.Detected {
			row.Detected = "YES"
		}
		recordMap, _ := utils.StructToOrderedMap(row)
		dataList = append(dataList, recordMap)
	}
	utils.PrintFormat(dataList)
	fmt.Printf("%d/%d checks triggered in %dms, threat level: %s\n",
		summary.Detections, summary.TotalChecks, summary.ScanTimeMs, summary.ThreatLevel())
	return nil
}

func init() {
	detectCmd.Flags().BoolVar(&optDetectJSON, "json", false, "Print the raw report")
	root.RootCmd.AddCommand(detectCmd)
}
