// Example gateway bot: a /colors command that opens a component paginator,
// and a /feedback command that opens a statically registered modal.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/xcg-dev/dgkit/components"
	"github.com/xcg-dev/dgkit/customid"
	"github.com/xcg-dev/dgkit/modals"
	"github.com/xcg-dev/dgkit/pagination"
	"github.com/xcg-dev/dgkit/timeouts"
)

type config struct {
	Token   string `envconfig:"DISCORD_BOT_TOKEN" required:"true"`
	GuildID string `envconfig:"DISCORD_GUILD_ID"`
}

var feedbackModalID = customid.Static("example", "feedback")

func main() {
	_ = godotenv.Load()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal(err)
	}

	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		log.Fatal(err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds

	componentClient := components.NewClient()
	modalClient := modals.NewClient()

	feedback := modals.MustNew(
		func(_ context.Context, mctx *modals.Context) error {
			text, _ := mctx.Field("feedback_text")
			log.Printf("feedback from %s: %q", mctx.AuthorID(), text)
			return mctx.Respond("Thanks, noted!")
		},
		modals.Field{
			CustomID: "feedback_text",
			Label:    "What should we improve?",
			Style:    discordgo.TextInputParagraph,
			Required: true,
		},
	)
	// Registro estático: el custom id es determinista y sobrevive reinicios.
	if err := modalClient.Register(feedbackModalID, feedback, modals.WithTimeout(timeouts.Never())); err != nil {
		log.Fatal(err)
	}

	s.AddHandler(componentClient.HandleInteraction)
	s.AddHandler(modalClient.HandleInteraction)
	s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic.Type != discordgo.InteractionApplicationCommand {
			return
		}
		switch ic.ApplicationCommandData().Name {
		case "colors":
			openColors(s, ic, componentClient)
		case "feedback":
			openFeedback(s, ic, feedback)
		}
	})

	if err := s.Open(); err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	log.Printf("connected as %s (%s)", s.State.User.Username, s.State.User.ID)

	componentClient.Open()
	defer componentClient.Close()
	modalClient.Open()
	defer modalClient.Close()

	for _, cmd := range []*discordgo.ApplicationCommand{
		{Name: "colors", Description: "Browse a few colors"},
		{Name: "feedback", Description: "Send us feedback"},
	} {
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, cfg.GuildID, cmd); err != nil {
			log.Fatalf("registering /%s: %v", cmd.Name, err)
		}
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
}

func openColors(s *discordgo.Session, ic *discordgo.InteractionCreate, client *components.Client) {
	pages := pagination.FromSlice(
		pagination.EmbedPage(&discordgo.MessageEmbed{Title: "Red", Color: 0xed4245}),
		pagination.EmbedPage(&discordgo.MessageEmbed{Title: "Green", Color: 0x57f287}),
		pagination.EmbedPage(&discordgo.MessageEmbed{Title: "Blue", Color: 0x5865f2}),
	)
	paginator := pagination.NewComponentPaginator(pages,
		pagination.WithTriggers(
			pagination.TriggerFirst,
			pagination.TriggerPrevious,
			pagination.TriggerStop,
			pagination.TriggerNext,
			pagination.TriggerLast,
		),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	page, err := paginator.FirstPage(ctx)
	if err != nil {
		log.Printf("pulling first page: %v", err)
		return
	}
	if err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: page.ResponseData(paginator.Rows()),
	}); err != nil {
		log.Printf("responding to /colors: %v", err)
		return
	}
	msg, err := s.InteractionResponse(ic.Interaction)
	if err != nil {
		log.Printf("fetching /colors response: %v", err)
		return
	}

	err = client.RegisterMessage(msg.ID, paginator,
		components.WithTimeout(timeouts.Sliding(2*time.Minute, timeouts.WithMaxUses(timeouts.Unlimited))),
	)
	if err != nil {
		log.Printf("registering paginator: %v", err)
	}
}

func openFeedback(s *discordgo.Session, ic *discordgo.InteractionCreate, feedback *modals.Modal) {
	err := s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   feedbackModalID,
			Title:      "Feedback",
			Components: feedback.Rows(),
		},
	})
	if err != nil {
		log.Printf("opening feedback modal: %v", err)
	}
}
