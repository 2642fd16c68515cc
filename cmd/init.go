package cmd

var (
	configPath string

	selectedBooks []string
	page          int
	allPages      bool
)

func initRootFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&configPath,
		"config",
		"c",
		"",
		"specifies the path to your config file",
	)
}

func initExportFlags() {
	exportCmd.Flags().StringSliceVarP(
		&selectedBooks,
		"books",
		"b",
		nil,
		"restricts the export to specific books, given as <providerId>:<bookId> pairs",
	)

	exportCmd.Flags().IntVarP(
		&page,
		"page",
		"p",
		1,
		"specifies the catalog page to fetch",
	)
	exportCmd.Flags().BoolVarP(
		&allPages,
		"all-pages",
		"a",
		false,
		"fetches every catalog page up to the last known one",
	)

	listCmd.Flags().IntVarP(
		&page,
		"page",
		"p",
		1,
		"specifies the catalog page to fetch",
	)
	listCmd.Flags().BoolVarP(
		&allPages,
		"all-pages",
		"a",
		false,
		"fetches every catalog page up to the last known one",
	)
}
