package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wfunc/boardserver/network"
)

// send formats and sends a message to the WebSocket server.
func send(c *websocket.Conn, msgID uint16, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	packet, err := network.Encode(msgID, data)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.BinaryMessage, packet)
}

func main() {
	addr := flag.String("addr", "localhost:8080", "server address")
	roomID := flag.String("room", "lobby", "room code")
	name := flag.String("name", "player", "nickname")
	join := flag.Bool("join", false, "join an existing room instead of creating it")
	flag.Parse()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	log.Printf("Connecting to %s", u.String())

	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Dial failed: %v", err)
	}
	defer c.Close()

	done := make(chan struct{})

	// Read loop
	go func() {
		defer close(done)
		for {
			_, message, err := c.ReadMessage()
			if err != nil {
				log.Println("Read error:", err)
				return
			}
			packet, err := network.Decode(message)
			if err != nil {
				log.Printf("Received invalid packet of size %d", len(message))
				continue
			}
			log.Printf("<- %s: %s", network.MsgName(packet.MsgID), string(packet.Data))
		}
	}()

	req := network.RoomRequest{RoomID: *roomID, Nickname: *name}
	msgID := uint16(network.MsgTypeCreateRoom)
	if *join {
		msgID = network.MsgTypeJoinRoom
	}
	if err := send(c, msgID, req); err != nil {
		log.Println("Write error:", err)
		return
	}

	log.Println("Commands: roll | buy <tile> | end | state | leave")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	for {
		select {
		case <-done:
			return
		case <-interrupt:
			log.Println("Interrupt received, closing connection.")
			err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Println("Write close error:", err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		case text, ok := <-lines:
			if !ok {
				return
			}
			if err := command(c, *roomID, text); err != nil {
				log.Println("Write error:", err)
				return
			}
		}
	}
}

func command(c *websocket.Conn, roomID, text string) error {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "roll":
		return send(c, network.MsgTypeRollDice, network.RollRequest{RoomID: roomID})
	case "buy":
		if len(fields) < 2 {
			log.Println("usage: buy <tile>")
			return nil
		}
		tile, err := strconv.Atoi(fields[1])
		if err != nil {
			log.Printf("bad tile %q", fields[1])
			return nil
		}
		return send(c, network.MsgTypeBuyTile, network.BuyRequest{RoomID: roomID, TileIndex: tile})
	case "end":
		return send(c, network.MsgTypeTurnUpdate, network.TurnRequest{RoomID: roomID})
	case "state":
		for _, id := range []uint16{
			network.MsgTypeGetRoomPlayers, network.MsgTypeGetPositions,
			network.MsgTypeGetBalances, network.MsgTypeGetOwnership, network.MsgTypeGetTurn,
		} {
			if err := send(c, id, roomID); err != nil {
				return err
			}
		}
		return nil
	case "leave":
		return send(c, network.MsgTypeLeaveRoom, network.LeaveRequest{RoomID: roomID})
	default:
		log.Printf("unknown command %q", fields[0])
		return nil
	}
}
