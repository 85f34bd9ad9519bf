// Package broker implements the pubhub broker and its client.
/*
                      acceptor
                         | chan accepts
                         v
       +--------------- loop ----------------+
       |      owns Registry and sessions     |
       +-------------------------------------+
             ^                        |
             | chan inbound           | session.jobs
             |                        v
          inbound  <--- conn --->  outbound
             \_______ session ________/
                         |
                       client
*/
package broker
