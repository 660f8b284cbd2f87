package models

// TagGroup is the option list and question shown for one tag picker.
type TagGroup struct {
	Label           string
	ThirdPartyLabel string
	Options         []string
}

// Question returns the picker prompt for a direct or observed relationship.
func (g TagGroup) Question(thirdParty bool) string {
	if thirdParty && g.ThirdPartyLabel != "" {
		return g.ThirdPartyLabel
	}
	return g.Label
}

// ImpactCategoryName is sent to the model in place of "after" when the user
// observes the relationship.
const ImpactCategoryName = "Impact/Role"

var (
	generalTags = TagGroup{
		Label:           "What comes to mind when you think about your relationship with this person?",
		ThirdPartyLabel: "What comes to mind when you think about their relationship with each other?",
		Options: []string{
			"Abusive", "Ambivalent", "Anxious", "Avoidant", "Casual", "Chaotic",
			"Close", "Codependent", "Competitive", "Complicated", "Controlling",
			"Dependent", "Distant", "Enmeshed", "Estranged", "Familial", "Friendly",
			"Healthy", "Intense", "Intimate", "Long-distance", "Loving", "Manipulative",
			"Mentor/Mentee", "Nurturing", "Obsessive", "Platonic", "Professional",
			"Protective", "Resentful", "Rivalry", "Safe", "Secure", "Spiritual",
			"Stable", "Strained", "Superficial", "Supportive", "Toxic", "Transactional",
			"Trusting", "Unequal", "Unpredictable", "Volatile",
		},
	}
	dynamicTags = TagGroup{
		Label:           "When you're together, what's the dynamic?",
		ThirdPartyLabel: "When they are together, what is their dynamic?",
		Options: []string{
			"Activity-based", "Argumentative", "Awkward", "Balanced", "Boring", "Chaotic",
			"Cold", "Collaborative", "Competitive", "Critical", "Defensive", "Demanding",
			"Dismissive", "Dominating", "Draining", "Easy-going", "Emotional", "Empowering",
			"Explosive", "Formal", "Fun", "Gossipy", "Guarded", "Healing", "Heavy",
			"Humorous", "Intellectual", "Intense", "Judgmental", "Light-hearted",
			"Misunderstood", "One-sided", "Passive-aggressive", "Playful", "Power Imbalance",
			"Quiet", "Relaxed", "Respectful", "Rigid", "Serious", "Stressful",
			"Tense", "Therapeutic",
		},
	}
	afterTags = TagGroup{
		Label: "How do you feel after you've been together with them?",
		Options: []string{
			"Accepted", "Agitated", "Ambivalent", "Angry", "Anxious", "Appreciated",
			"Ashamed", "Belittled", "Challenged", "Confident", "Confused", "Depressed",
			"Disappointed", "Drained", "Embarrassed", "Empty", "Energized", "Frustrated",
			"Fulfilled", "Guilty", "Happy", "Heard", "Helpless", "Hopeful", "Hurt",
			"Ignored", "Insecure", "Inspired", "Lonely", "Loved", "Overwhelmed",
			"Peaceful", "Proud", "Regretful", "Rejected", "Sad", "Safe", "Stressed",
			"Tense", "Triggered", "Unheard", "Unsafe", "Used", "Validated", "Valued",
			"Worthless",
		},
	}
	impactTags = TagGroup{
		Label: "How does their relationship impact you / what role do you play?",
		Options: []string{
			"Advisor", "Buffer", "Confidant", "Excluded", "Frustrated", "Ghost",
			"Helpless", "Invisible", "Jealous", "Mediator", "Messenger", "Neutral",
			"Observer", "Outsider", "Peace-keeper", "Protector", "Referee", "Relieved",
			"Resentful", "Scruitinized", "Target", "Triangulated", "Uncomfortable", "Worried",
		},
	}
)

// TagsFor returns the tag picker of a category. The after category of an
// observed relationship uses the impact list.
func TagsFor(c Category, thirdParty bool) TagGroup {
	switch c {
	case CategoryGeneral:
		return generalTags
	case CategoryDynamic:
		return dynamicTags
	case CategoryAfter:
		if thirdParty {
			return impactTags
		}
		return afterTags
	}
	return TagGroup{}
}

// PromptCategory is the category name sent to the question generator.
func PromptCategory(c Category, thirdParty bool) string {
	if c == CategoryAfter && thirdParty {
		return ImpactCategoryName
	}
	return string(c)
}
