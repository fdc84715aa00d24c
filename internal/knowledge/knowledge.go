package knowledge

// Chunk is a single passage from the built-in anxiety-management knowledge base.
type Chunk struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// Base returns the static knowledge base. The slice is rebuilt on every call so
// callers can't mutate the canonical data.
func Base() []Chunk {
	chunks := make([]Chunk, len(base))
	copy(chunks, base)
	return chunks
}

var base = []Chunk{
	{
		ID: "kb-gad",
		Content: "Generalized anxiety disorder (GAD) involves persistent, excessive worry about everyday " +
			"matters such as work, health, or finances. Worry postponement — scheduling a fixed daily " +
			"'worry window' — reduces intrusive worry during work hours and before sleep.",
	},
	{
		ID: "kb-box-breathing",
		Content: "Box breathing (inhale 4 seconds, hold 4, exhale 4, hold 4) activates the parasympathetic " +
			"nervous system and lowers heart rate within two to three minutes. It is discreet enough to " +
			"practice at a desk or in a meeting.",
	},
	{
		ID: "kb-grounding-54321",
		Content: "The 5-4-3-2-1 grounding technique interrupts spiraling anxious thoughts by naming five " +
			"things you can see, four you can touch, three you can hear, two you can smell, and one you " +
			"can taste. It anchors attention in the present moment during acute anxiety or panic.",
	},
	{
		ID: "kb-sleep-hygiene",
		Content: "Sleep and anxiety reinforce each other: poor sleep heightens next-day anxiety and anxious " +
			"arousal delays sleep onset. Sleep hygiene basics — consistent wake time, no screens in the " +
			"last hour, a cool dark room, and getting out of bed after 20 sleepless minutes — break the cycle.",
	},
	{
		ID: "kb-caffeine",
		Content: "Caffeine has a half-life of five to six hours and amplifies somatic anxiety symptoms such " +
			"as racing heart and restlessness. Limiting intake to the morning, or below 200mg daily, " +
			"measurably reduces baseline anxiety in sensitive individuals.",
	},
	{
		ID: "kb-social-anxiety",
		Content: "Social anxiety centers on fear of negative evaluation by others. Graded exposure — a " +
			"ladder of progressively harder social situations, practiced without safety behaviors — is the " +
			"most effective behavioral approach, combined with shifting attention outward from self-monitoring.",
	},
	{
		ID: "kb-panic",
		Content: "Panic attacks peak within ten minutes and are not dangerous, though they feel " +
			"catastrophic. Riding the wave — observing the symptoms without fighting them, paired with slow " +
			"exhale-focused breathing — shortens attacks; avoidance of the places they occurred prolongs the disorder.",
	},
	{
		ID: "kb-pmr",
		Content: "Progressive muscle relaxation (PMR) systematically tenses and releases muscle groups from " +
			"feet to face. Ten to fifteen minutes of PMR reduces physical tension that anxious people often " +
			"carry unnoticed in the jaw, shoulders, and stomach, and is effective before bed.",
	},
	{
		ID: "kb-cognitive-restructuring",
		Content: "Cognitive restructuring identifies distorted automatic thoughts (catastrophizing, " +
			"mind-reading, all-or-nothing thinking) and tests them against evidence. Writing the thought " +
			"down, rating belief in it, and drafting a balanced alternative weakens its grip over time.",
	},
	{
		ID: "kb-behavioral-activation",
		Content: "Anxiety and low mood shrink activity ranges. Behavioral activation schedules small, " +
			"concrete, values-linked activities — a short walk, calling a friend, ten minutes of a hobby — " +
			"and treats completion, not enjoyment, as the goal during the first weeks.",
	},
	{
		ID: "kb-worry-journal",
		Content: "A worry journal externalizes rumination: writing each worry, the feared outcome, and its " +
			"realistic likelihood. Reviewing past entries shows most feared outcomes never occurred, which " +
			"recalibrates threat estimation.",
	},
	{
		ID: "kb-nature",
		Content: "Twenty minutes in a park or any green space lowers cortisol measurably, and the effect " +
			"holds even for urban micro-doses of nature such as street trees or a balcony plant. Attention " +
			"restoration theory attributes this to effortless 'soft fascination'.",
	},
	{
		ID: "kb-exercise",
		Content: "Aerobic exercise of moderate intensity, twenty to thirty minutes, three times a week, " +
			"reduces trait anxiety comparably to some first-line treatments. A single session blunts " +
			"anxiety sensitivity to bodily arousal for hours afterwards.",
	},
	{
		ID: "kb-workplace",
		Content: "Workplace anxiety is fed by unbounded task lists and constant interruption. Time-boxing, " +
			"single-tasking in 25-minute blocks, turning off non-essential notifications, and a written " +
			"shutdown ritual at the end of the day reduce anticipatory work worry in the evening.",
	},
	{
		ID: "kb-self-compassion",
		Content: "Self-critical inner speech sustains anxiety. Self-compassion practice — addressing " +
			"yourself as you would a struggling friend, acknowledging that difficulty is part of shared " +
			"human experience — lowers anxiety and shame without reducing motivation.",
	},
	{
		ID: "kb-mindful-observation",
		Content: "Mindfulness of thoughts treats anxious thoughts as passing mental events rather than " +
			"facts. Labeling ('a worry is here', 'planning is happening') and returning attention to the " +
			"breath builds the capacity to disengage from rumination.",
	},
	{
		ID: "kb-caffeine-sleep",
		Content: "Caffeine consumed even six hours before bed reduces total sleep time by roughly an hour. " +
			"For anxious poor sleepers, a 2pm caffeine cutoff is one of the highest-leverage single changes.",
	},
	{
		ID: "kb-diaphragmatic",
		Content: "Diaphragmatic (belly) breathing at around six breaths per minute, with exhales longer " +
			"than inhales, maximizes heart-rate variability and is the fastest physiological route to " +
			"downshifting acute anxiety. A hand on the belly confirms the diaphragm is doing the work.",
	},
	{
		ID: "kb-uncertainty",
		Content: "Intolerance of uncertainty is a core driver of chronic worry. Deliberately practicing " +
			"small uncertain acts — sending a message without re-reading it, ordering an unfamiliar dish — " +
			"builds tolerance the way exposure builds tolerance to feared situations.",
	},
	{
		ID: "kb-screens-evening",
		Content: "Doomscrolling and work email in the evening keep the threat system engaged. A digital " +
			"sunset 60 minutes before bed, with the phone charging outside the bedroom, improves both sleep " +
			"onset and morning anxiety levels.",
	},
}
