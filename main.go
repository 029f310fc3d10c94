package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"hark/audio"
	"hark/auth"
	"hark/config"
	"hark/session"
	"hark/store"
	"hark/stt"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)

	listenCmd.Flags().String("input", "", "Transcribe a WAV file instead of the microphone")
	listenCmd.Flags().String("format", "", "Input audio format for file mode (wav)")
	listenCmd.Flags().Bool("on-device", false, "Require on-device recognition")
	listenCmd.Flags().Bool("save", false, "Save the final transcript to the history database")
	historyCmd.Flags().Int("limit", 20, "Number of transcripts to show")

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(localesCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().String("language", "en-US", "Recognition locale")
	rootCmd.PersistentFlags().
		String("recognizer", "deepgram", "Recognition backend (deepgram, exec, mock)")
	rootCmd.PersistentFlags().String("deepgram-api-key", "", "Deepgram API key")
	rootCmd.PersistentFlags().
		String("stt-command", "", "Local transcription command for the exec backend")
	rootCmd.PersistentFlags().
		String("stt-model", "", "Model path passed to the exec backend")
	rootCmd.PersistentFlags().String("db", "hark.db", "Transcript history database")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	viper.BindPFlag("language", rootCmd.PersistentFlags().Lookup("language"))
	viper.BindPFlag("recognizer", rootCmd.PersistentFlags().Lookup("recognizer"))
	viper.BindPFlag(
		"deepgram_api_key",
		rootCmd.PersistentFlags().Lookup("deepgram-api-key"),
	)
	viper.BindPFlag("stt_command", rootCmd.PersistentFlags().Lookup("stt-command"))
	viper.BindPFlag("stt_model", rootCmd.PersistentFlags().Lookup("stt-model"))
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.BindPFlag("input", listenCmd.Flags().Lookup("input"))
	viper.BindPFlag("format", listenCmd.Flags().Lookup("format"))
	viper.BindPFlag("on_device", listenCmd.Flags().Lookup("on-device"))
	viper.BindPFlag("save", listenCmd.Flags().Lookup("save"))
	viper.BindPFlag("limit", historyCmd.Flags().Lookup("limit"))
}

func initConfig() {
	viper.SetConfigName("hark")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home + "/.config/hark")
	}
	viper.SetEnvPrefix("hark")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
		}
	}

	logger = log.New(os.Stderr)
	if viper.GetBool("verbose") {
		logger.SetLevel(log.DebugLevel)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hark",
	Short: "Hark transcribes live speech from the terminal",
	Long:  `Hark captures microphone (or WAV file) audio, streams it into a speech recognizer, and prints transcripts as they arrive.`,
}

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run a recognition session",
	Run:   runListen,
}

var localesCmd = &cobra.Command{
	Use:   "locales",
	Short: "List the locales the selected recognizer supports",
	Run:   runLocales,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show saved transcripts",
	Run:   runHistory,
}

func createLoggers() (mainLogger, hearLogger, dataLogger *log.Logger) {
	mainLogger = logger.With().WithPrefix("main")
	hearLogger = logger.With().WithPrefix("hear")
	dataLogger = logger.With().WithPrefix("data")
	return
}

func buildRecognizer(hearLogger *log.Logger) (stt.Recognizer, error) {
	switch backend := viper.GetString("recognizer"); backend {
	case "deepgram":
		apiKey := viper.GetString("deepgram_api_key")
		if apiKey == "" {
			return nil, fmt.Errorf("missing DEEPGRAM_API_KEY or --deepgram-api-key=")
		}
		return stt.NewDeepgram(apiKey, hearLogger)
	case "exec":
		command := viper.GetString("stt_command")
		if command == "" {
			return nil, fmt.Errorf("the exec backend needs --stt-command=")
		}
		return stt.NewExec(command, viper.GetString("stt_model"), hearLogger)
	case "mock":
		return stt.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown recognizer backend %q", backend)
	}
}

func newSourceFactory(mainLogger *log.Logger) session.SourceFactory {
	return func(cfg config.Session) (audio.Source, error) {
		if cfg.FileMode() {
			return audio.NewFile(cfg.Input)
		}
		return audio.NewMicrophone(audio.DefaultFormat, mainLogger)
	}
}

func runListen(cmd *cobra.Command, args []string) {
	mainLogger, hearLogger, dataLogger := createLoggers()
	cfg := config.FromViper()

	recognizer, err := buildRecognizer(hearLogger)
	if err != nil {
		mainLogger.Fatal("create recognizer", "error", err.Error())
	}

	var transcripts *store.Store
	if cfg.Save {
		transcripts, err = store.Open(context.Background(), cfg.StorePath)
		if err != nil {
			mainLogger.Fatal("open transcript store", "error", err.Error())
		}
	}

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)

	controller := session.NewController(
		recognizer,
		auth.NewPromptGate(mainLogger),
		newSourceFactory(mainLogger),
		transcripts,
		mainLogger,
		os.Stdout,
	)

	code := controller.Run(ctx, cfg)
	stop()

	if transcripts != nil {
		if err := transcripts.Close(); err != nil {
			dataLogger.Error("close transcript store", "error", err.Error())
		}
	}

	if code != 0 {
		os.Exit(code)
	}
}

func runLocales(cmd *cobra.Command, args []string) {
	mainLogger, hearLogger, _ := createLoggers()

	recognizer, err := buildRecognizer(hearLogger)
	if err != nil {
		mainLogger.Fatal("create recognizer", "error", err.Error())
	}

	for _, locale := range recognizer.Locales() {
		fmt.Println(locale)
	}
}

func runHistory(cmd *cobra.Command, args []string) {
	mainLogger, _, dataLogger := createLoggers()

	ctx := context.Background()
	transcripts, err := store.Open(ctx, viper.GetString("db"))
	if err != nil {
		mainLogger.Fatal("open transcript store", "error", err.Error())
	}
	defer func() {
		if err := transcripts.Close(); err != nil {
			dataLogger.Error("close transcript store", "error", err.Error())
		}
	}()

	entries, err := transcripts.List(ctx, viper.GetInt("limit"))
	if err != nil {
		mainLogger.Fatal("fetch transcripts", "error", err.Error())
	}

	if len(entries) == 0 {
		fmt.Println("No transcripts found.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"When", "Language", "On-Device", "Transcript"})
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)

	for _, entry := range entries {
		onDevice := "no"
		if entry.OnDevice {
			onDevice = "yes"
		}
		table.Append([]string{
			entry.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			entry.Language,
			onDevice,
			entry.Text,
		})
	}

	table.Render()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
