package main

import (
	"errors"
	"fmt"

	"github.com/fracto-health/fracto/services/booking-service/internal/directory"
	"github.com/fracto-health/fracto/services/booking-service/internal/model"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDirectoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Doctor directory events",
	}

	var (
		ev       model.Doctor
		from, to string
	)
	publish := &cobra.Command{
		Use:   "publish",
		Short: "Publish a doctor upsert event to the directory topic",
		RunE: func(cmd *cobra.Command, _ []string) error {
			brokers := a.cfg.Brokers()
			if len(brokers) == 0 {
				return errors.New("KAFKA_BROKERS is required")
			}
			start, err := model.ParseClock(from)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			end, err := model.ParseClock(to)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			d := ev
			d.StartTime, d.EndTime = start, end
			d.Normalize()

			p := directory.NewPublisher(brokers, a.cfg.KafkaDirectoryTopic)
			defer p.Close()
			eventID, err := p.PublishDoctor(cmd.Context(), d)
			if err != nil {
				return err
			}
			a.logger.Info("doctor event published",
				zap.String("event_id", eventID),
				zap.String("doctor_id", d.ID),
				zap.String("topic", a.cfg.KafkaDirectoryTopic),
			)
			return nil
		},
	}
	f := publish.Flags()
	f.StringVar(&ev.ID, "id", "", "doctor id")
	f.StringVar(&ev.Name, "name", "", "doctor name")
	f.StringVar(&ev.City, "city", "", "city")
	f.StringVar(&ev.Specialization, "specialization", "", "specialization")
	f.StringVar(&ev.ProfileImagePath, "profile-image", "", "profile image path")
	f.StringVar(&from, "start", "09:00", "working hours start (HH:MM)")
	f.StringVar(&to, "end", "17:00", "working hours end (HH:MM)")
	f.IntVar(&ev.SlotDurationMinutes, "slot-minutes", model.DefaultSlotDurationMinutes, "slot length in minutes")
	_ = publish.MarkFlagRequired("id")
	_ = publish.MarkFlagRequired("name")

	cmd.AddCommand(publish)
	return cmd
}
