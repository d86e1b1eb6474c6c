package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/jocarsa/jocarsa-lavender/internal/matcher"
	"github.com/jocarsa/jocarsa-lavender/internal/models"
	"github.com/jocarsa/jocarsa-lavender/internal/service"
)

var queryOpts struct {
	username string
	password string
	token    string
	formHash string
	key      string
	value    string
	mode     string
	single   bool
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a submission query against the configured store",
	Example: `  lavender query --user jocarsa --password jocarsa --form abc123 \
    --key "correo electronico" --value ana@ --mode istartswith`,
	RunE: runQuery,
}

func init() {
	f := queryCmd.Flags()
	f.StringVarP(&queryOpts.username, "user", "u", "", "Account username")
	f.StringVarP(&queryOpts.password, "password", "p", "", "Account password")
	f.StringVar(&queryOpts.token, "token", "", "Bearer token from login, instead of user and password")
	f.StringVarP(&queryOpts.formHash, "form", "f", "", "Form hash")
	f.StringVarP(&queryOpts.key, "key", "k", "", "Field title, approximate spellings allowed")
	f.StringVar(&queryOpts.value, "value", "", "Value to match")
	f.StringVarP(&queryOpts.mode, "mode", "m", string(matcher.Equals), "equals, icontains, istartswith or iendswith")
	f.BoolVar(&queryOpts.single, "single", false, "Return only the newest match")
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	mode := matcher.ParseMode(queryOpts.mode)
	res, err := a.query.Query(ctx, service.Request{
		Credentials: service.Credentials{Username: queryOpts.username, Password: queryOpts.password, Token: queryOpts.token},
		FormHash:    queryOpts.formHash,
		Key:         queryOpts.key,
		Value:       queryOpts.value,
		Spec:        matcher.Mode{Kind: mode},
		Single:      queryOpts.single,
	})
	if err != nil {
		return err
	}

	rows := make([]models.Record, 0, len(res.Matches))
	for _, m := range res.Matches {
		rows = append(rows, m.Row)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(map[string]any{
		"form":    res.Form,
		"field":   res.Field.Title,
		"tier":    res.Field.Tier,
		"mode":    mode,
		"columns": res.Columns,
		"rows":    rows,
		"count":   len(rows),
	})
}
