package usecase

import "strings"

type fallbackCategory struct {
	name     string
	keywords []string
	reply    string
}

// Order is priority: the first category with a matching keyword wins.
var fallbackCategories = []fallbackCategory{
	{
		name:     "greeting",
		keywords: []string{"hello", "hi", "hola", "hey"},
		reply: "¡Hola! I'm your Santa Marta travel assistant. I'd love to help you plan your perfect Colombian adventure! 🌴\n\n" +
			"Could you tell me when you're planning to visit and what interests you most?",
	},
	{
		name:     "beach",
		keywords: []string{"beach", "playa", "ocean", "sea"},
		reply: "Great choice! Santa Marta has amazing beaches. I'd recommend:\n\n" +
			"• Playa Blanca - Crystal clear waters\n" +
			"• Taganga - Perfect for diving\n" +
			"• Rodadero - Popular with locals\n" +
			"• Tayrona Park beaches - Stunning nature\n\n" +
			"When are you planning to visit?",
	},
	{
		name:     "adventure",
		keywords: []string{"adventure", "hiking", "trek", "mountain"},
		reply: "Adventure awaits! Here are some amazing options:\n\n" +
			"• Tayrona National Park - Jungle and beach hiking\n" +
			"• Minca - Waterfall hikes and coffee tours\n" +
			"• Sierra Nevada - Indigenous villages\n" +
			"• Ciudad Perdida trek - 4-day adventure\n\n" +
			"What's your fitness level and time available?",
	},
	{
		name:     "budget",
		keywords: []string{"budget", "cost", "price", "expensive", "cheap"},
		reply: "Santa Marta can fit any budget!\n\n" +
			"• Budget: $30-50/day (hostels, street food)\n" +
			"• Mid-range: $80-120/day (hotels, restaurants)\n" +
			"• Luxury: $200+/day (resorts, tours)\n\n" +
			"What's your budget range? I can recommend the best options!",
	},
	{
		name:     "food",
		keywords: []string{"food", "restaurant", "eat", "dining"},
		reply: "The food in Santa Marta is incredible! Try:\n\n" +
			"• Fresh seafood at the beach\n" +
			"• Arepas and empanadas\n" +
			"• Local coffee in Minca\n" +
			"• Street food in the historic center\n\n" +
			"Do you have any dietary restrictions?",
	},
}

const fallbackDefaultReply = "Thanks for your message! I'm here to help you plan the perfect Santa Marta trip. 🌴\n\n" +
	"To give you the best recommendations, could you tell me:\n" +
	"• When are you planning to visit?\n" +
	"• What interests you most?\n" +
	"• What's your budget?\n" +
	"• How many people are traveling?\n\n" +
	"I'd love to create a custom itinerary for you!"

// FallbackReply maps a user message to a canned travel-advice reply using
// case-insensitive substring keyword matching. It performs no I/O.
func FallbackReply(message string) string {
	reply, _ := fallbackMatch(message)
	return reply
}

// fallbackMatch returns the reply and the name of the matched category
// ("default" when nothing matched).
func fallbackMatch(message string) (string, string) {
	lower := strings.ToLower(message)
	for _, c := range fallbackCategories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.reply, c.name
			}
		}
	}
	return fallbackDefaultReply, "default"
}
