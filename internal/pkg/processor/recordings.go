package processor

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"

	"github.com/mconf/mconf-aggr-sub000/internal/pkg/event"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/persistence"
	"github.com/mconf/mconf-aggr-sub000/internal/pkg/utils"
)

// transition is a per-workflow monotonic status step. An event whose
// workflow is not in the expected prior state is logged and ignored
type transition struct {
	from string
	to   string
}

// getOrCreateRecording lazily creates the recording row on the first
// pipeline event for a meeting
func (p *Processor) getOrCreateRecording(ctx context.Context, st Store, ref event.RapRef) (*persistence.Recording, error) {
	rec, err := st.RecordingByInternalMeetingID(ctx, ref.InternalMeetingID)
	if err != nil {
		return nil, fmt.Errorf("load recording: %w", err)
	}
	if rec != nil {
		return rec, nil
	}
	rec = &persistence.Recording{
		InternalMeetingID: ref.InternalMeetingID,
		ExternalMeetingID: ref.ExternalMeetingID,
		Status:            persistence.RecordingProcessing,
		Workflow:          map[string]string{},
	}
	if me, err := st.MeetingEventByInternalID(ctx, ref.InternalMeetingID); err != nil {
		return nil, fmt.Errorf("load meeting event: %w", err)
	} else if me != nil {
		rec.Name = me.Name
		rec.IsBreakout = me.IsBreakout
		rec.Participants = me.UniqueUsers
		rec.StartTime = me.StartTime
		rec.EndTime = me.EndTime
	}
	id, err := st.InsertRecording(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("insert recording: %w", err)
	}
	rec.ID = id
	goapp.Log.Info().Str("meeting", ref.InternalMeetingID).Msg("recording created")
	return rec, nil
}

// applyTransition advances one workflow if it is in the expected prior
// state. Returns false when the event arrived out of order
func applyTransition(rec *persistence.Recording, workflow string, tr *transition) bool {
	if tr == nil {
		return true
	}
	if rec.Workflow == nil {
		rec.Workflow = map[string]string{}
	}
	cur := rec.Workflow[workflow]
	if cur != tr.from {
		goapp.Log.Warn().Str("meeting", rec.InternalMeetingID).Str("workflow", workflow).
			Str("state", cur).Str("wanted", tr.from).Msg("out of order recording event, ignored")
		return false
	}
	rec.Workflow[workflow] = tr.to
	// top level status tracks the last applied transition of any workflow
	rec.Status = tr.to
	return true
}

func (p *Processor) rapStep(ctx context.Context, st Store, e event.RapStep, tr *transition) error {
	rec, err := p.getOrCreateRecording(ctx, st, e.RapRef)
	if err != nil {
		return err
	}
	rec.CurrentStep = e.Type()
	applyTransition(rec, e.Workflow, tr)
	if err := st.UpdateRecording(ctx, rec); err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	return nil
}

func (p *Processor) rapPublishEnded(ctx context.Context, st Store, e *event.RapPublishEnded) error {
	rec, err := p.getOrCreateRecording(ctx, st, e.RapRef)
	if err != nil {
		return err
	}
	rec.CurrentStep = e.Type()
	if applyTransition(rec, e.Workflow, &transition{from: persistence.RecordingProcessed, to: persistence.RecordingPublished}) {
		fillPublishData(rec, &e.Recording)
	}
	if err := st.UpdateRecording(ctx, rec); err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	return nil
}

// fillPublishData copies the publish snapshot into the recording row.
// Metadata is merged with incoming values winning on key collision,
// the playback entry is upserted by format
func fillPublishData(rec *persistence.Recording, rd *event.RecordingData) {
	if rd.Name != "" {
		rec.Name = rd.Name
	}
	rec.Published = true
	rec.IsBreakout = rd.IsBreakout
	if rd.StartTime != 0 {
		rec.StartTime = utils.ToSQLInt64(rd.StartTime)
	}
	if rd.EndTime != 0 {
		rec.EndTime = utils.ToSQLInt64(rd.EndTime)
	}
	rec.Size = rd.Size
	rec.RawSize = rd.RawSize
	if rec.Metadata == nil {
		rec.Metadata = map[string]any{}
	}
	for k, v := range rd.Metadata {
		rec.Metadata[k] = v
	}
	if rd.Download != nil {
		rec.Download = rd.Download
	}
	upsertPlayback(rec, rd.Playback)
}

func upsertPlayback(rec *persistence.Recording, pd event.PlaybackData) {
	if pd.Format == "" {
		return
	}
	entry := persistence.Playback{
		Format:         pd.Format,
		Link:           pd.Link,
		ProcessingTime: pd.ProcessingTime,
		Duration:       pd.Duration,
		Size:           pd.Size,
		Extensions:     pd.Extensions,
	}
	for i := range rec.Playback {
		if rec.Playback[i].Format == pd.Format {
			rec.Playback[i] = entry
			return
		}
	}
	rec.Playback = append(rec.Playback, entry)
}

// rapSetPublished toggles the published state. Valid only from the
// complementary prior state
func (p *Processor) rapSetPublished(ctx context.Context, st Store, ref event.RapRef, published bool) error {
	rec, err := st.RecordingByInternalMeetingID(ctx, ref.InternalMeetingID)
	if err != nil {
		return fmt.Errorf("load recording: %w", err)
	}
	if rec == nil {
		goapp.Log.Warn().Str("meeting", ref.InternalMeetingID).Str("event", ref.Type()).
			Msg("no recording row, skip publish toggle")
		return nil
	}
	want, next := persistence.RecordingUnpublished, persistence.RecordingPublished
	if !published {
		want, next = persistence.RecordingPublished, persistence.RecordingUnpublished
	}
	if rec.Status != want {
		goapp.Log.Warn().Str("meeting", ref.InternalMeetingID).Str("state", rec.Status).
			Str("event", ref.Type()).Msg("invalid publish transition, ignored")
		return nil
	}
	rec.Status = next
	rec.Published = published
	rec.CurrentStep = ref.Type()
	if err := st.UpdateRecording(ctx, rec); err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	return nil
}

func (p *Processor) rapDeleted(ctx context.Context, st Store, e *event.RapDeleted) error {
	rec, err := st.RecordingByInternalMeetingID(ctx, e.InternalMeetingID)
	if err != nil {
		return fmt.Errorf("load recording: %w", err)
	}
	if rec == nil {
		goapp.Log.Warn().Str("meeting", e.InternalMeetingID).Msg("no recording row, skip delete")
		return nil
	}
	rec.Status = persistence.RecordingDeleted
	rec.Published = false
	rec.CurrentStep = e.Type()
	if err := st.UpdateRecording(ctx, rec); err != nil {
		return fmt.Errorf("update recording: %w", err)
	}
	goapp.Log.Info().Str("meeting", e.InternalMeetingID).Msg("recording deleted")
	return nil
}
