package web

import (
	"bytes"
	"strconv"

	"net/http"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/mirozey/animvault/anim"
	"github.com/mirozey/animvault/asset"
	"github.com/mirozey/animvault/skeleton"
	"github.com/mirozey/animvault/utils"
	"github.com/mirozey/animvault/vault"
	"github.com/mirozey/animvault/webutils"
)

func stateString(inst vault.Instance) string {
	switch inst.AssetBase().State() {
	case asset.Loading:
		return "loading"
	case asset.Loaded:
		return "loaded"
	case asset.LoadFailed:
		return "failed"
	default:
		return "not loaded"
	}
}

func (s *Server) assetFromRequest(r *http.Request) (vault.Instance, error) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		return nil, errors.Wrap(err, "Bad asset id")
	}
	inst := s.vault.Get(id)
	if inst == nil {
		return nil, errors.Errorf("Unknown asset %q", id)
	}
	return inst, nil
}

func (s *Server) HandlerListAssets(w http.ResponseWriter, r *http.Request) {
	type assetEntry struct {
		Id    string
		Name  string
		Type  string
		State string
	}
	list := make([]assetEntry, 0)
	for _, inst := range s.vault.List() {
		base := inst.AssetBase()
		list = append(list, assetEntry{
			Id:    base.ID().String(),
			Name:  base.Name(),
			Type:  inst.TypeName(),
			State: stateString(inst),
		})
	}
	webutils.WriteJson(w, list)
}

type channelView struct {
	NodeName          string
	PositionKeyframes int
	RotationKeyframes int
	ScaleKeyframes    int
	// First rotation key as euler degrees, for eyeballing dumps.
	RotationPreview *mgl32.Vec3 `json:",omitempty"`
}

type eventView struct {
	Time       float32
	Duration   float32
	TypeName   string
	Unresolved bool
	Payload    string
}

func marshalAnimation(a *anim.Animation) interface{} {
	info := a.GetInfo()

	a.Locker.Lock()
	defer a.Locker.Unlock()

	channels := make([]channelView, len(a.Data.Channels))
	for i := range a.Data.Channels {
		c := &a.Data.Channels[i]
		view := channelView{
			NodeName:          c.NodeName,
			PositionKeyframes: c.Position.Count(),
			RotationKeyframes: c.Rotation.Count(),
			ScaleKeyframes:    c.Scale.Count(),
		}
		if c.Rotation.HasItems() {
			e := utils.QuatToEulerDegrees(c.Rotation.Keyframes()[0].Value)
			view.RotationPreview = &e
		}
		channels[i] = view
	}

	tracks := make(map[string][]eventView, len(a.Events))
	for i := range a.Events {
		track := &a.Events[i]
		views := make([]eventView, len(track.Keyframes))
		for j := range track.Keyframes {
			k := &track.Keyframes[j]
			views[j] = eventView{
				Time:       k.Time,
				Duration:   k.Duration,
				TypeName:   k.TypeName,
				Unresolved: k.Unresolved(),
				Payload:    utils.DumpToOneLineString(k.Raw),
			}
		}
		tracks[track.Name] = views
	}

	return &struct {
		Info             anim.Info
		FramesPerSecond  float64
		EnableRootMotion bool
		RootNodeName     string
		Channels         []channelView
		EventTracks      map[string][]eventView
	}{
		Info:             info,
		FramesPerSecond:  a.Data.FramesPerSecond,
		EnableRootMotion: a.Data.EnableRootMotion,
		RootNodeName:     a.Data.RootNodeName,
		Channels:         channels,
		EventTracks:      tracks,
	}
}

func (s *Server) HandlerAssetInfo(w http.ResponseWriter, r *http.Request) {
	inst, err := s.assetFromRequest(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	switch inst := inst.(type) {
	case *anim.Animation:
		webutils.WriteJson(w, marshalAnimation(inst))
	case *skeleton.Skeleton:
		inst.Locker.Lock()
		nodes := append([]skeleton.Node(nil), inst.Nodes...)
		inst.Locker.Unlock()
		webutils.WriteJson(w, nodes)
	default:
		webutils.WriteError(w, errors.Errorf("No view for asset type %q", inst.TypeName()))
	}
}

func (s *Server) HandlerDumpChunk(w http.ResponseWriter, r *http.Request) {
	inst, err := s.assetFromRequest(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		webutils.WriteError(w, errors.Wrap(err, "Bad chunk index"))
		return
	}
	base := inst.AssetBase()
	base.Locker.Lock()
	data := base.GetChunk(index)
	base.Locker.Unlock()
	if data == nil {
		webutils.WriteError(w, errors.Errorf("Asset %q has no chunk %d", base.Name(), index))
		return
	}
	webutils.WriteFile(w, bytes.NewReader(data), base.Name()+".chunk"+strconv.Itoa(index))
}

func (s *Server) HandlerDumpTimeline(w http.ResponseWriter, r *http.Request) {
	inst, err := s.assetFromRequest(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	a, ok := inst.(*anim.Animation)
	if !ok {
		webutils.WriteError(w, errors.Errorf("Asset %q is not an animation", inst.AssetBase().Name()))
		return
	}
	data, err := a.ExportTimeline()
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteFile(w, bytes.NewReader(data), a.Name()+".timeline")
}

func (s *Server) HandlerUploadTimeline(w http.ResponseWriter, r *http.Request) {
	inst, err := s.assetFromRequest(r)
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	a, ok := inst.(*anim.Animation)
	if !ok {
		webutils.WriteError(w, errors.Errorf("Asset %q is not an animation", inst.AssetBase().Name()))
		return
	}
	data, err := webutils.ReadUploadedFile(r, "timeline")
	if err != nil {
		webutils.WriteError(w, err)
		return
	}
	if err := a.ImportTimeline(data); err != nil {
		webutils.WriteError(w, err)
		return
	}
	webutils.WriteJson(w, map[string]string{"status": "saved"})
}
