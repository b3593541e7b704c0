package config

const (
	// TopicIngestTask is the NSQ topic carrying one ingestion task per message.
	TopicIngestTask = "ingest.task"

	// ChannelWorker is the consumer channel for the ingestion worker.
	ChannelWorker = "worker"
)
