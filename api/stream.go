package api

import "time"

// MsgType is a message type for streamed progress
type MsgType string

// Streaming message type constants
const (
	StartRunMsg    MsgType = "run_start"
	StartChunkMsg  MsgType = "chunk_start"
	DropSubmMsg    MsgType = "subm_drop"
	FinishChunkMsg MsgType = "chunk_finish"
	FinishRunMsg   MsgType = "run_finish"
)

// Code preview size constraints for streaming
const (
	MaxCodePreviewHeight = 40
	MaxCodePreviewWidth  = 80
)

// Header is the common header for all streamed messages
type Header struct {
	RunUuid string  `json:"run_uuid"`
	MsgType MsgType `json:"msg_type"`
}

// RunInfo describes a series build run
type RunInfo struct {
	Input     string  `json:"input"`
	Output    string  `json:"output"`
	DiffRatio float64 `json:"diff_ratio"`
	ChunkSize int     `json:"chunk_size"`
	Workers   int     `json:"workers"`
}

// Drop describes a submission removed from its series
type Drop struct {
	SubmissionID int64  `json:"subm_id"`
	UserID       int64  `json:"user_id"`
	StepID       int64  `json:"step_id"`
	Group        int    `json:"group"`
	Position     int    `json:"position"`
	Reason       string `json:"reason"`
	CodePreview  string `json:"code_preview"`
}

// ChunkStats summarizes one processed range of groups
type ChunkStats struct {
	Lo        int `json:"lo"`
	Hi        int `json:"hi"`
	Groups    int `json:"groups"`
	Rows      int `json:"rows"`
	Kept      int `json:"kept"`
	Same      int `json:"same"`
	Different int `json:"different"`
}

// StartRun message sent when a build begins
type StartRun struct {
	Header
	RunInfo
	StartedTime string `json:"started_time"`
}

// StartChunk message sent when a range of groups is loaded
type StartChunk struct {
	Header
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// DropSubm message sent for every submission filtered out
type DropSubm struct {
	Header
	Drop
}

// FinishChunk message sent after a range of groups is written
type FinishChunk struct {
	Header
	ChunkStats
}

// FinishRun message sent when the build completes
type FinishRun struct {
	Header
	ErrorMessage *string `json:"error_message"`
	FinishedTime string  `json:"finished_time"`
}

// Helper function to create a header
func NewHeader(runUuid string, msgType MsgType) Header {
	return Header{
		RunUuid: runUuid,
		MsgType: msgType,
	}
}

func NewStartRun(runUuid string, info RunInfo) StartRun {
	return StartRun{
		Header:      NewHeader(runUuid, StartRunMsg),
		RunInfo:     info,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewStartChunk(runUuid string, lo, hi int) StartChunk {
	return StartChunk{
		Header: NewHeader(runUuid, StartChunkMsg),
		Lo:     lo,
		Hi:     hi,
	}
}

func NewDropSubm(runUuid string, drop Drop) DropSubm {
	drop.CodePreview = TrimStrToRect(drop.CodePreview, MaxCodePreviewHeight, MaxCodePreviewWidth)
	return DropSubm{
		Header: NewHeader(runUuid, DropSubmMsg),
		Drop:   drop,
	}
}

func NewFinishChunk(runUuid string, stats ChunkStats) FinishChunk {
	return FinishChunk{
		Header:     NewHeader(runUuid, FinishChunkMsg),
		ChunkStats: stats,
	}
}

func NewFinishRun(runUuid string, errIfAny error) FinishRun {
	var msg *string
	if errIfAny != nil {
		s := errIfAny.Error()
		msg = &s
	}
	return FinishRun{
		Header:       NewHeader(runUuid, FinishRunMsg),
		ErrorMessage: msg,
		FinishedTime: time.Now().Format(time.RFC3339),
	}
}
