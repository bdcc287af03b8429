package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cyberinferno/tilemud/internal/game"
)

func handleQuit(actor Actor, _ []string) {
	actor.Deliver(game.System("Goodbye!"))
	actor.Quit()
}

func handleLook(actor Actor, _ []string) {
	player := actor.Player()
	room := player.Room()
	x, y := player.Position()

	var sights []string
	var portals []string
	radius := player.SightRadius()
	for ty := y - radius; ty <= y+radius; ty++ {
		for tx := x - radius; tx <= x+radius; tx++ {
			if !room.InBounds(tx, ty) {
				continue
			}

			tile := room.Tile(tx, ty)
			where := game.RelativeDirection(x, y, tx, ty)
			for _, obj := range tile.Objects {
				sights = append(sights, fmt.Sprintf("%s (%s)", obj.Name, where))
			}
			if tile.Portal != nil {
				portals = append(portals, fmt.Sprintf("%s (%s)", tile.Portal.Description, where))
			}
		}
	}

	var exits []string
	for _, dir := range []game.Direction{game.North, game.South, game.East, game.West} {
		if room.Exit(dir.String()) != nil {
			exits = append(exits, dir.String())
		}
	}

	sections := []game.ContentSection{
		{Title: "You see nearby:", Items: sights},
		{Title: "Portals:", Items: portals},
		{Title: "Exits:", Items: exits},
	}
	actor.Deliver(game.BoxedMessage(room.Name(), room.Description(), sections))
}

// directionHandler builds the handler for a fixed-direction command such as
// NORTH. An optional single argument gives the step count.
func directionHandler(dir game.Direction) Handler {
	return func(actor Actor, args []string) {
		steps := 1
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				actor.Deliver(game.Error(fmt.Sprintf("%q is not a step count.", args[0])))
				return
			}
			steps = n
		}

		moveSteps(actor, dir, steps)
	}
}

func handleMove(actor Actor, args []string) {
	if len(args) == 0 {
		actor.Deliver(game.Info("Where would you like to move?"))
		return
	}

	if dir, ok := game.ParseDirection(args[0]); ok {
		directionHandler(dir)(actor, args[1:])
		return
	}

	// Not a direction word, so it must be an absolute x,y pair.
	if len(args) >= 2 {
		x, errX := strconv.Atoi(args[0])
		y, errY := strconv.Atoi(args[1])
		if errX == nil && errY == nil {
			moveTo(actor, x, y)
			return
		}
	}

	actor.Deliver(game.Error("I don't understand where you want to move."))
}

// moveSteps walks the player one tile at a time, stopping early at the map
// edge or a blocked tile.
func moveSteps(actor Actor, dir game.Direction, steps int) {
	player := actor.Player()
	room := player.Room()
	x, y := player.Position()
	dx, dy := dir.Delta()

	moved := 0
	for i := 0; i < steps; i++ {
		nx, ny := x+dx, y+dy
		if !room.InBounds(nx, ny) || !room.Tile(nx, ny).Walkable() {
			break
		}
		x, y = nx, ny
		moved++
	}

	if moved == 0 {
		actor.Deliver(game.Error("You can't move " + dir.String() + " from here."))
		return
	}

	player.SetLocation(room, x, y)
	plural := "steps"
	if moved == 1 {
		plural = "step"
	}
	actor.Deliver(game.Move(fmt.Sprintf("You walk %d %s %s and are now at (%d, %d).", moved, plural, dir, x, y)))
	describeTile(actor, room, x, y)
}

// moveTo places the player directly on a target tile when it is reachable.
func moveTo(actor Actor, x, y int) {
	player := actor.Player()
	room := player.Room()

	if !room.InBounds(x, y) {
		actor.Deliver(game.Error(fmt.Sprintf("(%d, %d) is outside %s.", x, y, room.Name())))
		return
	}
	if !room.Tile(x, y).Walkable() {
		actor.Deliver(game.Error(fmt.Sprintf("Something is in the way at (%d, %d).", x, y)))
		return
	}

	player.SetLocation(room, x, y)
	actor.Deliver(game.Move(fmt.Sprintf("You move to (%d, %d).", x, y)))
	describeTile(actor, room, x, y)
}

// describeTile tells the player what shares their tile after a move.
func describeTile(actor Actor, room *game.Room, x, y int) {
	tile := room.Tile(x, y)
	for _, obj := range tile.Objects {
		actor.Deliver(game.Event("There is a " + obj.Name + " here."))
	}
	if tile.Portal != nil {
		actor.Deliver(game.PortalMsg(tile.Portal.Description + " Interact with it to travel."))
	}
}

func handleSay(actor Actor, args []string) {
	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		actor.Deliver(game.Error("Say what?"))
		return
	}

	actor.Deliver(game.Say("You say: " + message))
	actor.BroadcastToRoom(game.Say(actor.Player().Name() + ": " + message))
}

func handleShout(actor Actor, args []string) {
	message := strings.TrimSpace(strings.Join(args, " "))
	if message == "" {
		actor.Deliver(game.Error("Shout what?"))
		return
	}

	actor.Broadcast(game.Shout(actor.Player().Name() + ": " + message))
}

func handleWhisper(actor Actor, args []string) {
	if len(args) < 2 {
		actor.Deliver(game.Error("Whisper to whom, and what?"))
		return
	}

	target := args[0]
	message := strings.Join(args[1:], " ")

	if target == actor.Player().Name() {
		actor.Deliver(game.Error("You mutter to yourself."))
		return
	}

	other, ok := actor.FindPlayer(target)
	if !ok {
		actor.Deliver(game.Error("There is no one called " + target + " here."))
		return
	}

	other.Send(game.Whisper(actor.Player().Name() + " whispers: " + message))
	actor.Deliver(game.Whisper("You whisper to " + target + ": " + message))
}

func handleClear(actor Actor, _ []string) {
	actor.Deliver(game.ClearScreen)
}

func handleInteract(actor Actor, _ []string) {
	player := actor.Player()
	room := player.Room()
	x, y := player.Position()
	tile := room.Tile(x, y)

	if tile.Portal != nil {
		traversePortal(actor, tile.Portal)
		return
	}

	if obj, ok := tile.InteractableObject(); ok {
		actor.Deliver(game.Event(obj.Description))
		return
	}

	actor.Deliver(game.Info("There is nothing to interact with here."))
}

// traversePortal moves the player to the portal's target room, announcing
// the departure to the old room and the arrival to the new one.
func traversePortal(actor Actor, portal *game.Portal) {
	player := actor.Player()
	target := actor.World().Room(portal.TargetMap)
	if target == nil {
		actor.Deliver(game.Error("The portal fizzles. It leads nowhere."))
		return
	}

	actor.BroadcastToRoom(game.Event(player.Name() + " vanishes through a portal."))
	player.SetLocation(target, portal.TargetX, portal.TargetY)
	actor.BroadcastToRoom(game.Event(player.Name() + " appears out of thin air."))

	actor.Deliver(game.PortalMsg("You step through the portal."))
	handleLook(actor, nil)
}

func handleTalk(actor Actor, args []string) {
	player := actor.Player()
	room := player.Room()
	x, y := player.Position()
	wanted := strings.TrimSpace(strings.Join(args, " "))

	radius := player.SightRadius()
	for ty := y - radius; ty <= y+radius; ty++ {
		for tx := x - radius; tx <= x+radius; tx++ {
			if !room.InBounds(tx, ty) {
				continue
			}

			obj, ok := room.Tile(tx, ty).ObjectOfType(game.ObjectTypeNpc)
			if !ok {
				continue
			}
			if wanted != "" && !strings.EqualFold(obj.Name, wanted) {
				continue
			}

			line := obj.Description
			if npc, found := actor.World().Npcs().NpcByName(obj.Name); found {
				line = npc.Dialogue.Default
			}
			actor.Deliver(game.Event(obj.Name + " says: " + line))
			return
		}
	}

	if wanted != "" {
		actor.Deliver(game.Info("There is no " + wanted + " nearby."))
		return
	}
	actor.Deliver(game.Info("There is no one to talk to here."))
}

func handleGet(actor Actor, _ []string) {
	player := actor.Player()
	room := player.Room()
	x, y := player.Position()

	obj, ok := room.Tile(x, y).ObjectOfType(game.ObjectTypeItem)
	if !ok {
		actor.Deliver(game.Info("There is nothing here to pick up."))
		return
	}

	item, found := actor.World().Items().Item(obj.ItemID)
	if !found {
		// A tile object referencing an unknown item is a data bug; treat it
		// as immovable scenery.
		actor.Deliver(game.Info("The " + obj.Name + " won't budge."))
		return
	}

	room.RemoveObject(x, y, obj.Name)
	player.AddItem(item)
	actor.Deliver(game.Event("You picked up the " + item.Name + "."))
}

func handleMap(actor Actor, _ []string) {
	player := actor.Player()
	room := player.Room()

	if !player.HasItem("map_" + room.ID()) {
		actor.Deliver(game.Info("You don't have a map of " + room.Name() + "."))
		return
	}

	x, y := player.Position()
	actor.Deliver(game.MapView(room, x, y))
	if actor.Mode() != ModeMap {
		actor.SetMode(ModeMap)
		actor.Deliver(game.Info("Map mode enabled. Use the arrow keys to move; any other input returns to normal mode."))
	}
}

func handleChat(actor Actor, _ []string) {
	if actor.Mode() == ModeChat {
		actor.SetMode(ModeNormal)
		actor.Deliver(game.Info("Chat mode disabled."))
		return
	}

	actor.SetMode(ModeChat)
	actor.Deliver(game.Info("Chat mode enabled. Everything you type is said to the room. Use /chat to leave."))
}
