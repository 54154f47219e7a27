package domain

// Topic names are stable wire identifiers shared by producer and consumer
// configuration. Renaming one is a breaking deployment change that has to be
// rolled out on both sides at once.
const (
	TopicNamespace = "taskflow"

	TopicTaskEvents  = TopicNamespace + ".task-events"
	TopicTaskCreated = TopicNamespace + ".task-created"
	TopicTaskUpdated = TopicNamespace + ".task-updated"
	TopicTaskDeleted = TopicNamespace + ".task-deleted"
)

// RouteTopic maps an event type to its physical broker topic. Total over all
// inputs: anything unrecognized lands on the catch-all topic.
func RouteTopic(eventType EventType) string {
	switch eventType {
	case EventTaskCreated:
		return TopicTaskCreated
	case EventTaskUpdated:
		return TopicTaskUpdated
	case EventTaskDeleted:
		return TopicTaskDeleted
	default:
		return TopicTaskEvents
	}
}

// RoutedTopics lists every topic the consumer subscribes to, catch-all included.
func RoutedTopics() []string {
	return []string{TopicTaskCreated, TopicTaskUpdated, TopicTaskDeleted, TopicTaskEvents}
}
